package cli

import (
	"context"
	"log/slog"

	"github.com/aretw0/storyline/internal/config"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/ports"
)

// WatchableSource is a story source that reports changes.
type WatchableSource interface {
	ports.StorySource
	ports.Watchable
}

// WatchGraphs rebuilds the story each time src changes and emits the new
// graph. A build that fails is logged and skipped so a half-saved file never
// replaces a working story. The channel closes when ctx is done.
func WatchGraphs(ctx context.Context, src WatchableSource, cfg config.Config, logger *slog.Logger) (<-chan *domain.Graph, error) {
	changes, err := src.Watch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan *domain.Graph)
	go func() {
		defer close(out)
		for range changes {
			g, diags, err := LoadGraph(ctx, src, cfg, logger)
			if err != nil {
				logger.Warn("Reload skipped", "source", src.Name(), "err", err)
				continue
			}
			logger.Info("Change detected, story rebuilt", "source", src.Name(), "nodes", g.Len(), "warnings", len(diags))
			select {
			case out <- g:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
