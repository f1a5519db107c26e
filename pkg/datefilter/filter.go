package datefilter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/redigma/partner-dashboard/pkg/rows"
)

// droppedRows counts rows excluded because no key could be derived.
var droppedRows = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dashboard_datefilter_dropped_total",
	Help: "Rows dropped by the date filter because their date could not be read",
}, []string{"reason"})

// Spec is an immutable per-request filter description.
// Start and End are canonical keys; empty means unbounded on that side.
type Spec struct {
	Column string
	Start  string
	End    string
}

// Bounded reports whether at least one bound is set.
func (s Spec) Bounded() bool {
	return s.Start != "" || s.End != ""
}

// Contains reports whether key lies inside the inclusive bounds.
// Keys are fixed-width so string order matches date order.
func (s Spec) Contains(key string) bool {
	if s.Start != "" && key < s.Start {
		return false
	}
	if s.End != "" && key > s.End {
		return false
	}
	return true
}

// Filter returns the rows whose date key lies within spec, in input order.
// With no bounds the input is returned as is. The input is never modified.
func Filter(rs []rows.Row, spec Spec) []rows.Row {
	if !spec.Bounded() {
		return rs
	}

	logger := logging.NewLogger(logging.ComponentDateFilter).With().Str("column", spec.Column).Logger()

	out := make([]rows.Row, 0, len(rs))
	for i, row := range rs {
		res := Key(row, spec.Column)
		if !res.OK() {
			droppedRows.WithLabelValues(string(res.Reason)).Inc()
			ev := logger.Debug()
			if res.Reason == ReasonInvalidInstant {
				ev = logger.Warn()
			}
			ev.Int("row", i).
				Str("reason", string(res.Reason)).
				Err(res.Err).
				Msg("Dropping row with unreadable date")
			continue
		}
		if spec.Contains(res.Key) {
			out = append(out, row)
		}
	}
	return out
}
