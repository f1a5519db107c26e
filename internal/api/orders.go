package api

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/redigma/partner-dashboard/pkg/datefilter"
	"github.com/redigma/partner-dashboard/pkg/export"
	"github.com/redigma/partner-dashboard/pkg/pagination"
	"github.com/redigma/partner-dashboard/pkg/rows"
	"github.com/rs/zerolog/hlog"
)

// DefaultDateColumn is filtered on when the request names no column.
const DefaultDateColumn = "Created Time"

// ExportFilePrefix prefixes workbook attachment names.
const ExportFilePrefix = "data-tiktok"

// filterEcho reports the filters a listing was computed with.
// Absent bounds are null.
type filterEcho struct {
	StartDate  *string `json:"startDate"`
	EndDate    *string `json:"endDate"`
	DateColumn string  `json:"dateColumn"`
}

type listResponse struct {
	Data         []rows.Row `json:"data"`
	Page         int        `json:"page"`
	HasMore      bool       `json:"hasMore"`
	TotalRows    int        `json:"totalRows"`
	TotalShown   int        `json:"totalShown"`
	Headers      []string   `json:"headers"`
	Filters      filterEcho `json:"filters"`
	CacheCleared bool       `json:"cacheCleared"`
}

type exportResponse struct {
	Data      []rows.Row `json:"data"`
	TotalRows int        `json:"totalRows"`
}

// filterSpec reads startDate, endDate and dateColumn from the query.
func (s *Server) filterSpec(r *http.Request) datefilter.Spec {
	q := r.URL.Query()
	spec := datefilter.Spec{
		Column: q.Get("dateColumn"),
		Start:  q.Get("startDate"),
		End:    q.Get("endDate"),
	}
	if spec.Column == "" {
		spec.Column = s.deps.DateColumn
	}
	return spec
}

// parsePage returns the requested page, treating missing, unparseable and
// non-positive values as 1.
func parsePage(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// handleList serves GET /api/tiktok.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	q := r.URL.Query()

	pageNumber := parsePage(q.Get("page"))
	clearCache := q.Get("clearCache") == "true"
	spec := s.filterSpec(r)

	all, err := s.deps.Rows.Rows(r.Context(), clearCache)
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching data")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filtered := datefilter.Filter(all, spec)
	page := pagination.Paginate(filtered, pageNumber, pagination.DefaultPageSize)

	logger.Debug().
		Int("page", pageNumber).
		Int("rows", len(all)).
		Int("filtered", len(filtered)).
		Bool("cache_cleared", clearCache).
		Msg("Listing served")

	writeJSON(w, http.StatusOK, listResponse{
		Data:       page.Items,
		Page:       page.Number,
		HasMore:    page.HasMore,
		TotalRows:  page.Total,
		TotalShown: len(page.Items),
		Headers:    rows.Headers(page.Items, s.deps.HiddenColumns),
		Filters: filterEcho{
			StartDate:  optional(spec.Start),
			EndDate:    optional(spec.End),
			DateColumn: spec.Column,
		},
		CacheCleared: clearCache,
	})
}

// handleExport serves GET /api/tiktok/export, as JSON or, with
// format=xlsx, as a workbook attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	spec := s.filterSpec(r)

	all, err := s.deps.Rows.Rows(r.Context(), false)
	if err != nil {
		logger.Error().Err(err).Msg("Error fetching data for export")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	filtered := datefilter.Filter(all, spec)
	if filtered == nil {
		filtered = []rows.Row{}
	}

	if r.URL.Query().Get("format") != "xlsx" {
		writeJSON(w, http.StatusOK, exportResponse{
			Data:      filtered,
			TotalRows: len(filtered),
		})
		return
	}

	if len(filtered) == 0 {
		writeError(w, http.StatusNotFound, "No data to export")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.StripColumns(filtered, s.deps.HiddenColumns)); err != nil {
		logger.Error().Err(err).Msg("Failed to render workbook")
		writeError(w, http.StatusInternalServerError, "Failed to export data")
		return
	}

	filename := export.Filename(ExportFilePrefix, spec.Start, spec.End, s.deps.Now())
	logger.Info().
		Int("rows", len(filtered)).
		Str("filename", filename).
		Msg("Workbook exported")

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// contentDisposition quotes or RFC 2231-encodes filename as needed.
func contentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
