package cache

import (
	"time"

	"github.com/redigma/partner-dashboard/pkg/rows"
)

// Entry is the cached upstream row set.
type Entry struct {
	// Rows is the full, unfiltered row set. Never modified after creation.
	Rows []rows.Row

	// FetchedAt is when the fetch that produced Rows completed.
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// IsFresh reports whether the entry is still inside the freshness window.
// A nil entry is never fresh.
func (e *Entry) IsFresh(now time.Time, window time.Duration) bool {
	if e == nil {
		return false
	}
	return e.Age(now) < window
}
