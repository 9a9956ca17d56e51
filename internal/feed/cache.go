package feed

import (
	"sync"
	"time"

	"github.com/cryptomegabyte/gridsim/internal/model"
)

type cacheKey struct {
	pair      string
	timeframe int
}

type cacheEntry struct {
	series   model.PriceSeries
	expires  time.Time
	lastUsed time.Time
}

// Cache is the (pair, timeframe)-keyed historical-data cache: TTL-based
// freshness, LRU eviction once full, serialised writes.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[cacheKey]*cacheEntry
}

// NewCache builds a Cache holding at most maxSize entries for ttl each.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, maxSize: maxSize, entries: make(map[cacheKey]*cacheEntry)}
}

// Get returns the cached series for (pair, timeframe) if present and not
// expired.
func (c *Cache) Get(pair string, timeframeMinutes int) (model.PriceSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{pair, timeframeMinutes}
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expires) {
		return model.PriceSeries{}, false
	}
	entry.lastUsed = time.Now()
	return entry.series, true
}

// Put stores series for (pair, timeframe), evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(pair string, timeframeMinutes int, series model.PriceSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{pair, timeframeMinutes}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	now := time.Now()
	c.entries[key] = &cacheEntry{series: series, expires: now.Add(c.ttl), lastUsed: now}
}

func (c *Cache) evictOldest() {
	var oldestKey cacheKey
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastUsed.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
