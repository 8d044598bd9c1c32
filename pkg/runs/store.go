package runs

import (
	"sync"
	"time"
)

// Store is a thread-safe registry of run records.
type Store struct {
	mu    sync.RWMutex
	runs  map[string]*Record
	order []string // insertion order, oldest first
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{runs: make(map[string]*Record)}
}

// Create registers a new record. The record's StartedAt is stamped if zero.
func (s *Store) Create(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	cp := rec
	s.runs[rec.ID] = &cp
	s.order = append(s.order, rec.ID)
}

// Update applies fn to the record under the store lock. Returns
// *NotFoundError for unknown IDs.
func (s *Store) Update(id string, fn func(*Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.runs[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	fn(rec)
	return nil
}

// Get returns a copy of the record, or *NotFoundError.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.runs[id]
	if !ok {
		return Record{}, &NotFoundError{ID: id}
	}
	return *rec, nil
}

// List returns copies of all records, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.runs[s.order[i]])
	}
	return out
}
