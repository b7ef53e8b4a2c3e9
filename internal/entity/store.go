package entity

import (
	"sort"
	"strings"
)

// Store is the ordered, deduplicated collection of accepted entities for
// one document. Invariants: no two stored ranges intersect, and the
// sequence is sorted ascending by Start.
//
// Uniqueness is by exact (start, end) span only: a second Add with the
// same span is rejected even if its type or text differ. Store is not
// safe for concurrent use; callers serialize access (session.Session
// does this with its own mutex).
type Store struct {
	entities []Entity
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add inserts an entity and re-sorts the store by start offset.
// It returns false, without mutating the store, when an entity with the
// same (start, end) span already exists or when the entity text is
// empty after trimming.
func (s *Store) Add(e Entity) bool {
	if strings.TrimSpace(e.Text) == "" {
		return false
	}
	for _, existing := range s.entities {
		if existing.Start == e.Start && existing.End == e.End {
			return false
		}
	}
	s.entities = append(s.entities, e)
	sort.SliceStable(s.entities, func(i, j int) bool {
		return s.entities[i].Start < s.entities[j].Start
	})
	return true
}

// Remove deletes the entity at position i in the current sorted order.
// Out-of-bounds indices are a no-op. Removal shifts subsequent indices,
// so callers must not cache indices across mutations.
func (s *Store) Remove(i int) {
	if i < 0 || i >= len(s.entities) {
		return
	}
	s.entities = append(s.entities[:i], s.entities[i+1:]...)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.entities = nil
}

// Len returns the number of stored entities.
func (s *Store) Len() int {
	return len(s.entities)
}

// Entities returns a copy of the stored entities in sorted order.
func (s *Store) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	copy(out, s.entities)
	return out
}
