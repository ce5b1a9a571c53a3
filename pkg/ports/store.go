package ports

import (
	"context"

	"github.com/aretw0/storyline/pkg/domain"
)

// SaveStore persists save records.
type SaveStore interface {
	// Save persists the record under key, replacing any previous record.
	Save(ctx context.Context, key string, rec *domain.SaveRecord) error

	// Load retrieves the record stored under key.
	// Returns domain.ErrSaveNotFound if there is none.
	Load(ctx context.Context, key string) (*domain.SaveRecord, error)

	// Delete removes the record under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every stored key.
	List(ctx context.Context) ([]string, error)
}
