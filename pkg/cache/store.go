package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/redigma/partner-dashboard/pkg/rows"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultFreshnessWindow is how long a fetched row set is served from memory.
const DefaultFreshnessWindow = 5 * time.Minute

// Singleflight keys. Forced refreshes never join an unforced flight, which
// may answer from its freshness re-check without fetching.
const (
	refreshKey      = "rows"
	forceRefreshKey = "rows:force"
)

// Fetcher loads the full row set from the upstream.
type Fetcher interface {
	Fetch(ctx context.Context) ([]rows.Row, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) ([]rows.Row, error)

// Fetch calls f(ctx).
func (f FetcherFunc) Fetch(ctx context.Context) ([]rows.Row, error) {
	return f(ctx)
}

// Store caches the upstream row set for the freshness window.
type Store struct {
	fetcher Fetcher
	window  time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu    sync.RWMutex
	entry *Entry

	group singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithWindow overrides the freshness window.
func WithWindow(window time.Duration) Option {
	return func(s *Store) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store in front of fetcher. The store starts empty.
func NewStore(fetcher Fetcher, opts ...Option) *Store {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	s := &Store{
		fetcher: fetcher,
		window:  DefaultFreshnessWindow,
		now:     time.Now,
		logger:  logging.NewLogger(logging.ComponentCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rows returns the cached row set, fetching it when the entry is missing,
// stale, or forceRefresh is set. The returned slice must not be modified.
func (s *Store) Rows(ctx context.Context, forceRefresh bool) ([]rows.Row, error) {
	if forceRefresh {
		CacheMisses.WithLabelValues("forced").Inc()
	} else {
		s.mu.RLock()
		entry := s.entry
		s.mu.RUnlock()

		if entry.IsFresh(s.now(), s.window) {
			CacheHits.Inc()
			s.logger.Debug().
				Int("rows", len(entry.Rows)).
				Dur("age", entry.Age(s.now())).
				Msg("Serving rows from cache")
			return entry.Rows, nil
		}

		if entry == nil {
			CacheMisses.WithLabelValues("empty").Inc()
		} else {
			CacheMisses.WithLabelValues("stale").Inc()
		}
	}

	key := refreshKey
	if forceRefresh {
		key = forceRefreshKey
	}
	ch := s.group.DoChan(key, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), forceRefresh)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Msg("Joined in-flight refresh")
		}
		return res.Val.([]rows.Row), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// refresh performs one fetch and, on success, replaces the entry.
// Unforced refreshes re-check the entry first, since another flight may have
// completed between the caller's freshness check and this one starting.
func (s *Store) refresh(ctx context.Context, force bool) ([]rows.Row, error) {
	if !force {
		s.mu.RLock()
		entry := s.entry
		s.mu.RUnlock()
		if entry.IsFresh(s.now(), s.window) {
			return entry.Rows, nil
		}
	}

	start := time.Now()
	fetched, err := s.fetcher.Fetch(ctx)
	CacheRefreshDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		CacheRefreshErrors.Inc()
		s.logger.Warn().Err(err).Msg("Cache refresh failed")
		return nil, err
	}

	entry := &Entry{Rows: fetched, FetchedAt: s.now()}

	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()

	CacheRows.Set(float64(len(fetched)))
	s.logger.Info().
		Int("rows", len(fetched)).
		Dur("duration", time.Since(start)).
		Msg("Cache refreshed")

	return fetched, nil
}

// Invalidate drops the current entry so the next read fetches.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()

	CacheRows.Set(0)
	s.logger.Info().Msg("Cache invalidated")
}

// Snapshot describes the current entry.
type Snapshot struct {
	Cached     bool      `json:"cached"`
	Rows       int       `json:"rows"`
	FetchedAt  time.Time `json:"fetchedAt"`
	AgeSeconds float64   `json:"ageSeconds"`
	Fresh      bool      `json:"fresh"`
}

// Snapshot returns metadata about the current entry without fetching.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	entry := s.entry
	s.mu.RUnlock()

	if entry == nil {
		return Snapshot{}
	}
	now := s.now()
	return Snapshot{
		Cached:     true,
		Rows:       len(entry.Rows),
		FetchedAt:  entry.FetchedAt,
		AgeSeconds: entry.Age(now).Seconds(),
		Fresh:      entry.IsFresh(now, s.window),
	}
}

// Window returns the configured freshness window.
func (s *Store) Window() time.Duration {
	return s.window
}
