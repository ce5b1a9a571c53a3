package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/storyline/pkg/domain"
)

// Store implements ports.SaveStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.SaveRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.SaveRecord),
	}
}

// Save persists the record in memory.
func (s *Store) Save(ctx context.Context, key string, rec *domain.SaveRecord) error {
	// Copy to ensure isolation, similar to serialization
	copied := rec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load retrieves the record from memory.
func (s *Store) Load(ctx context.Context, key string) (*domain.SaveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSaveNotFound
	}

	// Copy on read so callers can't mutate store state through the pointer
	return rec.Clone(), nil
}

// Delete removes the record.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
