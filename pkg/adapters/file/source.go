package file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors produce on save.
const DefaultDebounce = 150 * time.Millisecond

// Source implements ports.StorySource and ports.Watchable for a story file.
type Source struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) SourceOption {
	return func(s *Source) {
		s.debounce = d
	}
}

// WithLogger sets the logger used by the watcher.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSource creates a source reading path.
func NewSource(path string, opts ...SourceOption) *Source {
	s := &Source{
		path:     path,
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the file content.
func (s *Source) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story %s: %w", s.path, err)
	}
	return data, nil
}

// Name returns the file name.
func (s *Source) Name() string {
	return filepath.Base(s.path)
}

// Path returns the file path.
func (s *Source) Path() string {
	return s.path
}

// Watch reports changes to the story file. The parent directory is watched so
// that editors replacing the file by rename are still seen. The channel is
// closed when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != abs {
					continue
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
					continue
				}
				s.logger.Debug("Story file changed", "path", evt.Name, "op", evt.Op.String())
				if timer == nil {
					timer = time.NewTimer(s.debounce)
				} else {
					timer.Reset(s.debounce)
				}
				fire = timer.C
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Watcher error", "err", err)
			case <-fire:
				fire = nil
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
