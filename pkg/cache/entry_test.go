package cache

import (
	"testing"
	"time"
)

func TestEntry_IsFresh(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		fetchedAt time.Time
		want      bool
	}{
		{
			name:      "just fetched",
			fetchedAt: now,
			want:      true,
		},
		{
			name:      "inside window",
			fetchedAt: now.Add(-4*time.Minute - 59*time.Second),
			want:      true,
		},
		{
			name:      "exactly at window",
			fetchedAt: now.Add(-5 * time.Minute),
			want:      false,
		},
		{
			name:      "past window",
			fetchedAt: now.Add(-1 * time.Hour),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &Entry{FetchedAt: tt.fetchedAt}
			if got := entry.IsFresh(now, DefaultFreshnessWindow); got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_IsFresh_Nil(t *testing.T) {
	var entry *Entry
	if entry.IsFresh(time.Now(), DefaultFreshnessWindow) {
		t.Error("nil entry should never be fresh")
	}
}

func TestEntry_Age(t *testing.T) {
	now := time.Now()
	entry := &Entry{FetchedAt: now.Add(-90 * time.Second)}

	if got := entry.Age(now); got != 90*time.Second {
		t.Errorf("Age() = %v, want 90s", got)
	}
}
