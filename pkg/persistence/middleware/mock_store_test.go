package middleware_test

import (
	"context"
	"sort"

	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.SaveRecord
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.SaveRecord),
	}
}

func (s *MockStore) Save(ctx context.Context, key string, rec *domain.SaveRecord) error {
	s.data[key] = rec.Clone()
	return nil
}

func (s *MockStore) Load(ctx context.Context, key string) (*domain.SaveRecord, error) {
	rec, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSaveNotFound
	}
	return rec.Clone(), nil
}

func (s *MockStore) Delete(ctx context.Context, key string) error {
	delete(s.data, key)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

var _ ports.SaveStore = (*MockStore)(nil)
