// Package remap tracks identifier translation during restore runs.
//
// Records archived from the source carry the source's identifiers; when an
// entity is recreated at the destination it receives a fresh one. Entities
// restored in later waves look up their dependencies' new identifiers here.
package remap

import (
	"fmt"
	"sync"
)

// Table maps old identifiers to their restored counterparts, namespaced per
// entity so identifier spaces never collide.
type Table struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{entries: make(map[string]map[string]string)}
}

// Set records that oldID of the named entity became newID.
func (t *Table) Set(entityName, oldID, newID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	byEntity, ok := t.entries[entityName]
	if !ok {
		byEntity = make(map[string]string)
		t.entries[entityName] = byEntity
	}
	byEntity[oldID] = newID
}

// Resolve returns the restored identifier for oldID of the named entity.
func (t *Table) Resolve(entityName, oldID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	newID, ok := t.entries[entityName][oldID]
	return newID, ok
}

// MustResolve is Resolve with an error instead of a bool, for call sites
// where a missing mapping means the archive is inconsistent.
func (t *Table) MustResolve(entityName, oldID string) (string, error) {
	newID, ok := t.Resolve(entityName, oldID)
	if !ok {
		return "", fmt.Errorf("no remapping for %s %q", entityName, oldID)
	}
	return newID, nil
}

// Len returns the total number of recorded mappings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, byEntity := range t.entries {
		n += len(byEntity)
	}
	return n
}
