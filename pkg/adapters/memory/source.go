package memory

import (
	"context"
	"sync"
)

// Source implements ports.StorySource and ports.Watchable over an in-memory
// text. Update replaces the text and notifies watchers.
type Source struct {
	name string

	mu       sync.RWMutex
	text     []byte
	watchers []chan struct{}
}

// NewSource creates a source holding text.
func NewSource(name string, text []byte) *Source {
	if name == "" {
		name = "memory"
	}
	return &Source{name: name, text: append([]byte(nil), text...)}
}

// Read returns a copy of the current text.
func (s *Source) Read(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.text...), nil
}

// Name returns the label given at construction.
func (s *Source) Name() string {
	return s.name
}

// Update replaces the text and signals every watcher.
func (s *Source) Update(text []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = append([]byte(nil), text...)

	// Watchers are closed under the same lock, so sends never hit a closed channel.
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watch returns a channel signaled after each Update. It is closed when ctx
// is done.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
