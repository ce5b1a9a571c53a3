package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/storyline/internal/config"
	"github.com/aretw0/storyline/internal/presentation/tui"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/observability"
)

// PlayOptions contains the configuration of the play command.
type PlayOptions struct {
	Player   string
	LoadSlot int // -1 starts from the beginning
	Watch    bool
	Version  string
	In       io.Reader
	Out      io.Writer
}

// RunPlay plays the configured story interactively.
func RunPlay(ctx context.Context, cfg config.Config, opts PlayOptions) error {
	logger := NewLogger(cfg.LogLevel)
	rt, err := Open(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, diags, err := rt.LoadGraph(ctx)
	if err != nil {
		return err
	}

	interactive := tui.IsTerminal(opts.Out)
	if interactive {
		tui.PrintBanner(opts.Out, opts.Version)
	}
	for _, d := range diags {
		printSystemMessage(opts.Out, "warning: %v", d)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reloads <-chan *domain.Graph
	if opts.Watch {
		reloads, err = WatchGraphs(ctx, rt.Source, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", rt.Source.Name(), err)
		}
		printSystemMessage(opts.Out, "Watching '%s' for changes.", rt.Source.Path())
	}

	p := &Player{
		Manager: rt.NewManager(g, observability.LoggingHooks(logger)),
		ID:      opts.Player,
		Out:     opts.Out,
		Render:  tui.RendererFor(opts.Out),
		Logger:  logger,
	}
	return p.Run(ctx, opts.LoadSlot, ReadLines(ctx, opts.In), reloads)
}
