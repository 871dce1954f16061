package geocache

import (
	"context"
	"maps"
	"sync"

	"github.com/jukenmap/jukenmap/internal/model"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]model.Coordinate
	saves   int
}

// NewMemoryStore returns a store seeded with initial (which may be nil).
func NewMemoryStore(initial map[string]model.Coordinate) *MemoryStore {
	entries := maps.Clone(initial)
	if entries == nil {
		entries = make(map[string]model.Coordinate)
	}
	return &MemoryStore{entries: entries}
}

func (s *MemoryStore) Load(_ context.Context) (map[string]model.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries), nil
}

func (s *MemoryStore) Save(_ context.Context, entries map[string]model.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range entries {
		if _, ok := s.entries[k]; !ok {
			s.entries[k] = v
		}
	}
	s.saves++
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Saves returns how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
