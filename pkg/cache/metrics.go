package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks reads served from memory
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_hits_total",
			Help: "Total number of row cache hits",
		},
	)

	// CacheMisses tracks reads that required an upstream fetch
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_misses_total",
			Help: "Total number of row cache misses",
		},
		[]string{"reason"}, // "empty", "stale", "forced"
	)

	// CacheRows tracks the size of the current entry
	CacheRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_cache_rows",
			Help: "Number of rows in the current cache entry",
		},
	)

	// CacheRefreshErrors tracks failed refreshes
	CacheRefreshErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_cache_refresh_errors_total",
			Help: "Total number of failed cache refreshes",
		},
	)

	// CacheRefreshDuration tracks refresh latency
	CacheRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_cache_refresh_duration_seconds",
			Help:    "Duration of cache refreshes in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
)
