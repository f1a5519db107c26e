// Package cache holds the process-wide snapshot of upstream order rows.
//
// The store keeps exactly one entry: the full row set from the last
// successful fetch and the time it was taken. Reads within the freshness
// window (5 minutes by default) are served from memory without touching the
// upstream; anything else triggers a fetch that replaces the entry wholesale.
//
// # Basic Usage
//
//	client := upstream.New(upstream.DefaultConfig(os.Getenv("GOOGLE_APPS_SCRIPT_URL")))
//	store := cache.NewStore(client)
//
//	// Served from memory while fresh
//	rs, err := store.Rows(ctx, false)
//
//	// Forced refresh (the listing endpoint's clearCache=true)
//	rs, err = store.Rows(ctx, true)
//
// # Concurrency
//
// Readers take a read lock; replacement takes the write lock, so rows and
// timestamp always change together. Concurrent callers that all find the
// entry stale share one upstream fetch. The shared fetch is detached from
// any single caller's cancellation, while each caller still returns as soon
// as its own context is done.
//
// A failed fetch never touches the existing entry and is not retried.
//
// # Metrics
//
//   - dashboard_cache_hits_total - Reads served from memory
//   - dashboard_cache_misses_total{reason} - Reads that needed a fetch (empty, stale, forced)
//   - dashboard_cache_rows - Rows in the current entry
//   - dashboard_cache_refresh_errors_total - Failed refreshes
//   - dashboard_cache_refresh_duration_seconds - Refresh latency
package cache
