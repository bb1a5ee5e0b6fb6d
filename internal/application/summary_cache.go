package application

import (
	"sync"
	"time"
)

// SummaryCache stores recently computed attendance summaries so repeated list
// reads do not recount the ledger while nothing has changed. Every mutating
// operation invalidates the whole cache, which keeps the stored-counter drift
// class of bugs impossible: a stale entry can live at most one TTL and only
// between mutations.
type SummaryCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	ttl     time.Duration
	entries map[string]summaryCacheEntry
}

type summaryCacheEntry struct {
	summaries []AttendanceSummary
	expiresAt time.Time
}

// NewSummaryCache constructs a cache with the given entry lifetime.
func NewSummaryCache(ttl time.Duration, now func() time.Time) *SummaryCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &SummaryCache{
		now:     now,
		ttl:     ttl,
		entries: make(map[string]summaryCacheEntry),
	}
}

// Get returns the cached summaries for a key if present and fresh.
func (c *SummaryCache) Get(key string) ([]AttendanceSummary, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSummaries(entry.summaries), true
}

// Store records summaries for a key.
func (c *SummaryCache) Store(key string, summaries []AttendanceSummary) {
	if c == nil {
		return
	}
	cloned := cloneSummaries(summaries)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	c.entries[key] = summaryCacheEntry{summaries: cloned, expiresAt: expiry}
	c.mu.Unlock()
}

// Invalidate drops every cached entry.
func (c *SummaryCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]summaryCacheEntry)
	c.mu.Unlock()
}

func cloneSummaries(summaries []AttendanceSummary) []AttendanceSummary {
	if summaries == nil {
		return nil
	}
	out := make([]AttendanceSummary, len(summaries))
	copy(out, summaries)
	return out
}
