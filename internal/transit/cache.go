// Package transit enriches schools with real public-transport durations from
// an origin, in rate-limited batches backed by an in-memory cache.
package transit

import (
	"fmt"
	"sync"

	"github.com/jukenmap/jukenmap/internal/model"
)

// Cache holds transit durations keyed by rounded origin and destination.
// It is safe for concurrent use and is shared by every run of an Aggregator.
type Cache struct {
	mu sync.RWMutex
	m  map[string]model.TransitInfo
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]model.TransitInfo)}
}

// CacheKey rounds both points to four decimals, roughly 11 m.
func CacheKey(origin, dest model.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f→%.4f,%.4f", origin.Lat, origin.Lng, dest.Lat, dest.Lng)
}

// Get returns the cached duration for the pair.
func (c *Cache) Get(origin, dest model.Coordinate) (model.TransitInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.m[CacheKey(origin, dest)]
	return info, ok
}

// Set stores the duration for the pair, replacing any previous value.
func (c *Cache) Set(origin, dest model.Coordinate, info model.TransitInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[CacheKey(origin, dest)] = info
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}
