// Package store holds per-entity last-known state and the default
// diff-and-log handler built on top of it.
package store

import (
	"sync"

	"github.com/tracklab-io/statefeed/internal/domain"
)

// Store maps entity IDs to their last recorded history entry. Entries
// are created lazily on first sighting and live for the process
// lifetime; nothing evicts them.
//
// All access goes through a single mutex. Per-entity updates are
// thereby serialized across workers; no cross-entity atomicity is
// offered or needed.
type Store struct {
	mu      sync.Mutex
	entries map[int32]domain.HistoryEntry
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[int32]domain.HistoryEntry)}
}

// Visit runs fn for id under the store lock. fn receives the current
// entry and whether the entity has been seen before, and returns the
// replacement entry plus whether to record it. Visit reports whether
// the entry was recorded.
//
// fn must not call back into the store.
func (s *Store) Visit(id int32, fn func(prev domain.HistoryEntry, seen bool) (domain.HistoryEntry, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.entries[id]
	next, record := fn(prev, seen)
	if record {
		s.entries[id] = next
	}
	return record
}

// Get returns the entry for id and whether the entity has been seen.
func (s *Store) Get(id int32) (domain.HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	return e, ok
}

// Len returns the number of tracked entities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
