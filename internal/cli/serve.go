package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/storyline/internal/config"
	httpAdapter "github.com/aretw0/storyline/pkg/adapters/http"
	"github.com/aretw0/storyline/pkg/adapters/mcp"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/observability"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions contains the configuration of the serve command.
type ServeOptions struct {
	Watch   bool
	Version string
}

// RunServe exposes the story over HTTP until ctx is done.
func RunServe(ctx context.Context, cfg config.Config, opts ServeOptions) error {
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
	for _, d := range diags {
		logger.Warn("Story warning", "diagnostic", d.Error())
	}

	hooks := observability.LoggingHooks(logger)
	srvOpts := []httpAdapter.Option{
		httpAdapter.WithLogger(logger),
		httpAdapter.WithVersion(opts.Version),
	}
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		hooks = observability.ChainHooks(hooks, observability.NewMetrics(reg).Hooks())
		srvOpts = append(srvOpts, httpAdapter.WithMetrics(reg))
	}
	if assets := rt.Assets(); assets != nil {
		srvOpts = append(srvOpts, httpAdapter.WithAssets(assets))
	}

	m := rt.NewManager(g, hooks)
	api := httpAdapter.NewServer(m, srvOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.Watch {
		graphs, err := WatchGraphs(ctx, rt.Source, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", rt.Source.Name(), err)
		}
		go FollowReloads(ctx, graphs, m, api.NotifyReload, logger)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.Handler(),
	}
	return listenUntilDone(ctx, srv, logger)
}

// FollowReloads swaps every graph from graphs into m and calls notify after
// each swap. It returns when graphs closes or ctx is done.
func FollowReloads(ctx context.Context, graphs <-chan *domain.Graph, m *session.Manager, notify func(), logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case g, ok := <-graphs:
			if !ok {
				return
			}
			kept, dropped := m.Reload(ctx, g)
			logger.Info("Story reloaded", "kept", len(kept), "dropped", len(dropped))
			if notify != nil {
				notify()
			}
		}
	}
}

func listenUntilDone(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting Storyline server", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("Start shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("Storyline server stopped gracefully")
		return nil
	}
}

// MCPOptions contains the configuration of the mcp command.
type MCPOptions struct {
	Transport string // "stdio" or "sse"
	Port      int
	Watch     bool
	Version   string
}

// RunMCP exposes the story as MCP tools. Over stdio it blocks until the
// client disconnects; over SSE until ctx is done.
func RunMCP(ctx context.Context, cfg config.Config, opts MCPOptions) error {
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
	for _, d := range diags {
		logger.Warn("Story warning", "diagnostic", d.Error())
	}

	m := rt.NewManager(g, observability.LoggingHooks(logger))
	srv := mcp.NewServer(m, opts.Version, mcp.WithLogger(logger))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.Watch {
		graphs, err := WatchGraphs(ctx, rt.Source, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", rt.Source.Name(), err)
		}
		go FollowReloads(ctx, graphs, m, nil, logger)
	}

	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting Storyline MCP Server (Stdio)")
		return srv.ServeStdio()
	case "sse":
		port := opts.Port
		if port == 0 {
			port = cfg.Server.MCPPort
		}
		err := srv.ServeSSE(ctx, port)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown transport %q: supported are stdio and sse", opts.Transport)
	}
}
