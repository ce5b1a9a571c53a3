package storyline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/storyline/internal/logging"
	"github.com/aretw0/storyline/pkg/adapters/file"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/ports"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/aretw0/storyline/pkg/tabular"
)

// Engine is the high-level entry point of the library. It holds a built story
// and the defaults its sessions are created with.
type Engine struct {
	source ports.StorySource
	graph  *domain.Graph
	diags  []domain.Diagnostic
	hooks  domain.LifecycleHooks
	labels domain.Labels
	logger *slog.Logger
	marker string
	strict bool
	Name   string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks on every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLabels sets the transcript labels recorded for choices.
func WithLabels(labels domain.Labels) Option {
	return func(e *Engine) {
		e.labels = labels
	}
}

// WithMarker overrides the node start marker of the tabular source.
func WithMarker(marker string) Option {
	return func(e *Engine) {
		e.marker = marker
	}
}

// WithStrict makes any structural diagnostic fail the build.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

func newEngine(opts []Option) *Engine {
	e := &Engine{labels: domain.DefaultLabels()}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.labels = e.labels.OrDefault()
	return e
}

// New builds an engine from story text held in memory.
func New(text string, opts ...Option) (*Engine, error) {
	e := newEngine(opts)
	if err := e.build(text); err != nil {
		return nil, err
	}
	return e, nil
}

// Load builds an engine from a story source.
func Load(ctx context.Context, src ports.StorySource, opts ...Option) (*Engine, error) {
	e := newEngine(opts)
	e.source = src
	e.Name = src.Name()
	e.logger = e.logger.With("story", e.Name)
	if err := e.Reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Open builds an engine from a story file.
func Open(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return Load(ctx, file.NewSource(abs), opts...)
}

func (e *Engine) build(text string) error {
	var bopts []tabular.Option
	bopts = append(bopts, tabular.WithLogger(e.logger))
	if e.marker != "" {
		bopts = append(bopts, tabular.WithMarker(e.marker))
	}
	g, diags := tabular.New(bopts...).Build(text)
	if e.strict {
		if err := tabular.Strict(diags); err != nil {
			return err
		}
	}
	if g.Len() == 0 {
		return domain.ErrEmptyGraph
	}
	e.graph, e.diags = g, diags
	return nil
}

// Reload re-reads the source and rebuilds the graph. On failure the previous
// graph is kept.
func (e *Engine) Reload(ctx context.Context) error {
	if e.source == nil {
		return fmt.Errorf("engine has no source to reload")
	}
	text, err := e.source.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read story: %w", err)
	}
	return e.build(string(text))
}

// Graph returns the built story graph.
func (e *Engine) Graph() *domain.Graph {
	return e.graph
}

// Diagnostics returns the structural warnings of the last build.
func (e *Engine) Diagnostics() []domain.Diagnostic {
	return e.diags
}

// Watch returns a channel that signals when the underlying story changes.
// Returns error if the source does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.source.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current source does not support watching")
}

// NewManager creates a session manager over store using the engine's graph,
// hooks, labels and logger. Extra options are applied last.
func (e *Engine) NewManager(store ports.SaveStore, opts ...session.Option) *session.Manager {
	base := []session.Option{
		session.WithLogger(e.logger),
		session.WithHooks(e.hooks),
		session.WithLabels(e.labels),
	}
	return session.NewManager(e.graph, store, append(base, opts...)...)
}
