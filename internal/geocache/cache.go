// Package geocache persists resolved address coordinates so bulk geocoding
// runs can resume without repeating lookups.
package geocache

import (
	"context"
	"maps"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jukenmap/jukenmap/internal/model"
)

// Store is the durable side of a Cache. Save must keep entries written by
// earlier calls and must never replace an existing key.
type Store interface {
	Load(ctx context.Context) (map[string]model.Coordinate, error)
	Save(ctx context.Context, entries map[string]model.Coordinate) error
	Close() error
}

// Cache is an in-memory key to coordinate map backed by a Store. Entries are
// write-once: the first successful resolution for a key wins.
type Cache struct {
	mu      sync.RWMutex
	store   Store
	entries map[string]model.Coordinate
	dirty   bool
}

// New creates an empty cache over store. Call Load to read persisted entries.
func New(store Store) *Cache {
	return &Cache{
		store:   store,
		entries: make(map[string]model.Coordinate),
	}
}

// Load merges persisted entries into memory. Entries already present in
// memory are kept.
func (c *Cache) Load(ctx context.Context) error {
	stored, err := c.store.Load(ctx)
	if err != nil {
		return eris.Wrap(err, "geocache: load")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range stored {
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = v
		}
	}
	zap.L().Debug("geocache: loaded", zap.Int("entries", len(stored)))
	return nil
}

// Get returns the coordinate cached under key.
func (c *Cache) Get(key string) (model.Coordinate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Set records coord under key unless key is already present or coord is invalid.
// It reports whether the entry was written.
func (c *Cache) Set(key string, coord model.Coordinate) bool {
	if key == "" || !coord.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		return false
	}
	c.entries[key] = coord
	c.dirty = true
	return true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Dirty reports whether entries were added since the last successful Flush.
func (c *Cache) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dirty
}

// Flush writes the full cache to the store.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.RLock()
	snapshot := maps.Clone(c.entries)
	c.mu.RUnlock()

	if err := c.store.Save(ctx, snapshot); err != nil {
		return eris.Wrap(err, "geocache: flush")
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}
