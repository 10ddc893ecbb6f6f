// Package memstore provides the in-memory entity store backing the demo
// services: an ordered, mutex-guarded collection per entity type with
// human-readable sequential IDs.
package memstore

import (
	"fmt"
	"sync"
)

// Store holds every record of one entity type for the life of the process.
// Insertion order is preserved. IDs come from a monotonic counter kept next
// to the slice, so they stay unique regardless of concurrent inserts.
type Store[T any] struct {
	mu     sync.Mutex
	prefix string
	seq    int
	items  []T
	idOf   func(T) string
}

// New creates a store whose sequential IDs carry the given prefix
// (e.g. "PROC" yields "PROC-001"). idOf must return a record's ID field.
func New[T any](prefix string, idOf func(T) string) *Store[T] {
	return &Store[T]{prefix: prefix, idOf: idOf}
}

// Insert allocates the next ID, builds the record with it and appends it,
// all under one lock acquisition.
func (s *Store[T]) Insert(build func(id string) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := build(s.nextIDLocked())
	s.items = append(s.items, item)
	return item
}

// Add appends a record whose ID was assigned by the caller (opaque tokens
// such as UUIDs for log entries).
func (s *Store[T]) Add(item T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return item
}

// Get returns the record with the given ID via linear scan.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if s.idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// List returns a snapshot of all records matching the filter, in insertion
// order. A nil filter matches everything. The returned slice never aliases
// the store's backing array.
func (s *Store[T]) List(filter func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if filter == nil || filter(item) {
			out = append(out, item)
		}
	}
	return out
}

// Update replaces the record with the given ID by apply's result. The ID
// must not change; Update panics if apply rewrites it.
func (s *Store[T]) Update(id string, apply func(T) T) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if s.idOf(item) != id {
			continue
		}
		updated := apply(item)
		if s.idOf(updated) != id {
			panic(fmt.Sprintf("memstore: update changed id %q to %q", id, s.idOf(updated)))
		}
		s.items[i] = updated
		return updated, true
	}
	var zero T
	return zero, false
}

// UpdateAll applies apply to every record and reports how many were touched.
// Records for which apply returns false are left as they were.
func (s *Store[T]) UpdateAll(apply func(T) (T, bool)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i, item := range s.items {
		updated, ok := apply(item)
		if !ok {
			continue
		}
		if s.idOf(updated) != s.idOf(item) {
			panic(fmt.Sprintf("memstore: update changed id %q to %q", s.idOf(item), s.idOf(updated)))
		}
		s.items[i] = updated
		count++
	}
	return count
}

// Len returns the number of stored records.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// NextID allocates and returns the next sequential ID without inserting.
func (s *Store[T]) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextIDLocked()
}

func (s *Store[T]) nextIDLocked() string {
	s.seq++
	return fmt.Sprintf("%s-%03d", s.prefix, s.seq)
}
