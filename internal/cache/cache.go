// Package cache provides a small in-process read cache for stored reports,
// keeping repeat fetches of the same trading day off the document store.
package cache

import (
	"sync"
	"time"

	"github.com/bobmcallan/marketbrief/internal/models"
)

// entry wraps a cached report with expiry and insertion order tracking.
type entry struct {
	report    *models.DailyReport
	expiry    time.Time
	insertIdx int64
}

// ReportCache caches fetched reports keyed by trading date.
// Thread-safe with sync.RWMutex.
type ReportCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
}

// New creates a new ReportCache with the given TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *ReportCache {
	return &ReportCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Get returns a cached report if found and not expired.
func (c *ReportCache) Get(tradingDate string) (*models.DailyReport, bool) {
	c.mu.RLock()
	e, ok := c.items[tradingDate]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[tradingDate]; ok2 && time.Now().After(e2.expiry) {
			delete(c.items, tradingDate)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.report, true
}

// Set stores a report in the cache. Evicts the oldest entry if at capacity.
func (c *ReportCache) Set(tradingDate string, report *models.DailyReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		report:    report,
		expiry:    time.Now().Add(c.ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	// If key already exists, update in place (no capacity change)
	if _, exists := c.items[tradingDate]; exists {
		c.items[tradingDate] = e
		return
	}

	// Evict oldest if at capacity
	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[tradingDate] = e
}

// Invalidate removes the cached entry for a trading date. Called after
// regeneration or an audio update so readers never see a stale document.
func (c *ReportCache) Invalidate(tradingDate string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, tradingDate)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *ReportCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
