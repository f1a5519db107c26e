// Package metrics holds the HTTP-level Prometheus metrics of the dashboard
// and documents the metrics defined in other packages.
// Component metrics live next to the code that records them (cache,
// upstream, datefilter, auth, ratelimit) to avoid circular dependencies.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the default Prometheus registry used by the dashboard.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "Total HTTP requests by route template and status",
	}, []string{"route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request duration by route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// UnmatchedRoute labels requests that matched no route.
const UnmatchedRoute = "unmatched"

// Middleware records request counts and latency per route template.
// It must run inside the router so the matched route is known.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := RouteTemplate(r)
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(m.Code)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(m.Duration.Seconds())
	})
}

// RouteTemplate returns the path template of the matched mux route.
func RouteTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return UnmatchedRoute
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return UnmatchedRoute
	}
	return tmpl
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - dashboard_cache_hits_total (Counter): Reads served from memory
//   - dashboard_cache_misses_total{reason} (Counter): Reads that fetched (empty, stale, forced)
//   - dashboard_cache_rows (Gauge): Rows in the current entry
//   - dashboard_cache_refresh_errors_total (Counter): Failed refreshes
//   - dashboard_cache_refresh_duration_seconds (Histogram): Refresh latency
//
// Upstream Metrics (pkg/upstream):
//   - dashboard_upstream_requests_total{status} (Counter): Fetches by HTTP status or error kind
//   - dashboard_upstream_request_duration_seconds (Histogram): Fetch latency
//   - dashboard_upstream_rows_fetched (Gauge): Rows in the last successful fetch
//
// Date Filter Metrics (pkg/datefilter):
//   - dashboard_datefilter_dropped_total{reason} (Counter): Rows dropped for unreadable dates
//
// Sign-in Metrics (pkg/auth, pkg/ratelimit):
//   - dashboard_signin_total{outcome} (Counter): Sign-in attempts by outcome
//   - dashboard_signin_failures_recorded_total (Counter): Failures counted against accounts
//   - dashboard_signin_lockouts_total (Counter): Accounts locked
//   - dashboard_signin_blocks_total{gate} (Counter): Attempts refused (account, ip)
//
// HTTP Metrics (pkg/metrics):
//   - dashboard_http_requests_total{route, status} (Counter)
//   - dashboard_http_request_duration_seconds{route} (Histogram)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(dashboard_cache_hits_total[5m])) /
//   (sum(rate(dashboard_cache_hits_total[5m])) + sum(rate(dashboard_cache_misses_total[5m])))
//
//   # Upstream Error Rate
//   sum(rate(dashboard_upstream_requests_total{status!="200"}[5m]))
//
//   # Rows Dropped by Reason
//   sum by (reason) (rate(dashboard_datefilter_dropped_total[1h]))
//
//   # P95 Listing Latency
//   histogram_quantile(0.95, rate(dashboard_http_request_duration_seconds_bucket{route="/api/tiktok"}[5m]))
