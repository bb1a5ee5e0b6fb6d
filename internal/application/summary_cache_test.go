package application

import (
	"testing"
	"time"
)

func TestSummaryCache(t *testing.T) {
	base := time.Date(2026, time.May, 20, 10, 0, 0, 0, time.UTC)

	t.Run("serves fresh entries", func(t *testing.T) {
		cache := NewSummaryCache(time.Minute, func() time.Time { return base })
		cache.Store("all", []AttendanceSummary{{EventID: "evt-1", RegisteredCount: 3}})

		got, ok := cache.Get("all")
		if !ok {
			t.Fatal("expected a cache hit")
		}
		if len(got) != 1 || got[0].EventID != "evt-1" {
			t.Fatalf("unexpected cached value: %+v", got)
		}
	})

	t.Run("expires entries after the ttl", func(t *testing.T) {
		now := base
		cache := NewSummaryCache(time.Minute, func() time.Time { return now })
		cache.Store("all", []AttendanceSummary{{EventID: "evt-1"}})

		now = base.Add(2 * time.Minute)
		if _, ok := cache.Get("all"); ok {
			t.Fatal("expected expired entry to miss")
		}
	})

	t.Run("invalidate drops all entries", func(t *testing.T) {
		cache := NewSummaryCache(time.Minute, func() time.Time { return base })
		cache.Store("all", []AttendanceSummary{{EventID: "evt-1"}})
		cache.Store("other", []AttendanceSummary{{EventID: "evt-2"}})

		cache.Invalidate()

		if _, ok := cache.Get("all"); ok {
			t.Fatal("expected invalidation to drop the entry")
		}
		if _, ok := cache.Get("other"); ok {
			t.Fatal("expected invalidation to drop every entry")
		}
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		cache := NewSummaryCache(time.Minute, func() time.Time { return base })
		cache.Store("all", []AttendanceSummary{{EventID: "evt-1", RegisteredCount: 1}})

		got, _ := cache.Get("all")
		got[0].RegisteredCount = 99

		again, _ := cache.Get("all")
		if again[0].RegisteredCount != 1 {
			t.Fatalf("expected cached value to be isolated from callers, got %d", again[0].RegisteredCount)
		}
	})

	t.Run("nil cache is inert", func(t *testing.T) {
		var cache *SummaryCache
		cache.Store("all", nil)
		cache.Invalidate()
		if _, ok := cache.Get("all"); ok {
			t.Fatal("expected nil cache to always miss")
		}
	})
}
