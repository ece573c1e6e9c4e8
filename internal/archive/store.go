// Package archive persists entity snapshots between a backup run and a
// later restore run.
package archive

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when no snapshot exists for an entity.
var ErrNotFound = fmt.Errorf("no snapshot found")

// Store reads and writes per-entity snapshots. A snapshot is the full list
// of converted records captured for one entity in one run.
type Store interface {
	// Write replaces the snapshot for the entity.
	Write(ctx context.Context, entityName string, records []any) error
	// Read returns the snapshot for the entity, or ErrNotFound.
	Read(ctx context.Context, entityName string) ([]any, error)
	// Entities returns the names of all entities with a snapshot, sorted.
	Entities(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-process Store for tests and offline runs.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]any
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]any)}
}

// Write implements Store.
func (s *MemoryStore) Write(ctx context.Context, entityName string, records []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]any, len(records))
	copy(copied, records)
	s.snapshots[entityName] = copied
	return nil
}

// Read implements Store.
func (s *MemoryStore) Read(ctx context.Context, entityName string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.snapshots[entityName]
	if !ok {
		return nil, fmt.Errorf("%w for entity %q", ErrNotFound, entityName)
	}
	out := make([]any, len(records))
	copy(out, records)
	return out, nil
}

// Entities implements Store.
func (s *MemoryStore) Entities(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.snapshots))
	for name := range s.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

var _ Store = (*MemoryStore)(nil)
