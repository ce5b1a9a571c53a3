package ports

import "context"

// StorySource supplies the raw text of a story.
type StorySource interface {
	// Read returns the full story text.
	Read(ctx context.Context) ([]byte, error)

	// Name is a human readable label, usually a file name.
	Name() string
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying story changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// AssetResolver maps logical asset ids (backgrounds, characters) to resources.
type AssetResolver interface {
	// Resolve returns a locator for id, or domain.ErrAssetNotFound.
	Resolve(id string) (string, error)
}
