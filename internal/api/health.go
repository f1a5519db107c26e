package api

import (
	"context"
	"net/http"
	"time"

	"github.com/redigma/partner-dashboard/pkg/cache"
	"github.com/rs/zerolog/hlog"
)

const readyTimeout = 2 * time.Second

type readyResponse struct {
	Status string         `json:"status"`
	Cache  cache.Snapshot `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady reports whether backing stores are reachable.
// The row cache may be empty; it is filled on first use.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready", Cache: s.deps.Rows.Snapshot()})
}

// handleInvalidate serves POST /api/admin/cache/invalidate.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	s.deps.Rows.Invalidate()

	logger := hlog.FromRequest(r).Info()
	if sess, ok := SessionFromContext(r.Context()); ok {
		logger = logger.Str("email", sess.Email)
	}
	logger.Msg("Row cache invalidated")

	writeJSON(w, http.StatusOK, map[string]bool{"cacheCleared": true})
}
