package report

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Cache bounds the cost of repeated clustering/summarization calls under
// polling load. Entries are keyed by (session, published-only); a cached
// report is served while it is younger than maxAge and fewer than
// threshold questions arrived since it was built. Process-local state:
// initialized empty at start, written on build, cleared on explicit
// invalidation. Concurrent misses may race to rebuild; the rebuild is
// idempotent so last-write-wins is fine.
type Cache struct {
	mu        sync.RWMutex
	entries   map[cacheKey]cacheEntry
	maxAge    time.Duration
	threshold int
	now       func() time.Time
}

type cacheKey struct {
	sessionID     uuid.UUID
	publishedOnly bool
}

type cacheEntry struct {
	report        *SessionReport
	builtAt       time.Time
	questionCount int
}

func NewCache(maxAge time.Duration, threshold int) *Cache {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	if threshold <= 0 {
		threshold = 10
	}
	return &Cache{
		entries:   make(map[cacheKey]cacheEntry),
		maxAge:    maxAge,
		threshold: threshold,
		now:       time.Now,
	}
}

// Get returns the cached report if it is still fresh given the current
// question count.
func (c *Cache) Get(sessionID uuid.UUID, publishedOnly bool, currentCount int) (*SessionReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey{sessionID, publishedOnly}]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.builtAt) >= c.maxAge {
		return nil, false
	}
	if currentCount-entry.questionCount >= c.threshold {
		return nil, false
	}
	return entry.report, true
}

func (c *Cache) Put(sessionID uuid.UUID, publishedOnly bool, report *SessionReport, questionCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey{sessionID, publishedOnly}] = cacheEntry{
		report:        report,
		builtAt:       c.now(),
		questionCount: questionCount,
	}
}

// Invalidate drops every cached entry for a session, both the published
// and unfiltered variants. Used when feedback changes, since attention
// flags depend on tallies the cache would otherwise serve stale.
func (c *Cache) Invalidate(sessionID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, cacheKey{sessionID, true})
	delete(c.entries, cacheKey{sessionID, false})
}
