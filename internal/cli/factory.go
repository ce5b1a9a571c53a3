package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/storyline/internal/config"
	"github.com/aretw0/storyline/pkg/adapters/file"
	"github.com/aretw0/storyline/pkg/adapters/memory"
	"github.com/aretw0/storyline/pkg/adapters/redis"
	"github.com/aretw0/storyline/pkg/adapters/sqlite"
	"github.com/aretw0/storyline/pkg/domain"
	"github.com/aretw0/storyline/pkg/persistence/middleware"
	"github.com/aretw0/storyline/pkg/ports"
	"github.com/aretw0/storyline/pkg/session"
	"github.com/aretw0/storyline/pkg/tabular"
)

// Runtime bundles the collaborators every command builds from the config.
type Runtime struct {
	Config config.Config
	Logger *slog.Logger
	Source *file.Source // nil when no story is configured
	Store  ports.SaveStore
	Locker ports.DistributedLocker

	closers []func() error
}

// Open creates the runtime. The caller must Close it.
func Open(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	store, locker, closer, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		Config: cfg,
		Logger: logger,
		Store:  store,
		Locker: locker,
	}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
	if cfg.Story != "" {
		r.Source = file.NewSource(cfg.Story, file.WithLogger(logger))
	}
	return r, nil
}

// Close releases the store.
func (r *Runtime) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// OpenStore builds the configured save store, wrapped with encryption when a
// key is set. Redis also provides a distributed locker.
func OpenStore(cfg config.Config, logger *slog.Logger) (ports.SaveStore, ports.DistributedLocker, func() error, error) {
	var (
		store  ports.SaveStore
		locker ports.DistributedLocker
		closer func() error
	)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		store = memory.NewStore()
	case config.DriverFile:
		store = file.New(cfg.StorePath())
	case config.DriverSQLite:
		path := cfg.StorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		s, err := sqlite.New(path)
		if err != nil {
			return nil, nil, nil, err
		}
		store, closer = s, s.Close
	case config.DriverRedis:
		var opts []redis.Option
		if cfg.Store.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Store.TTL))
		}
		prefix := redis.DefaultPrefix
		if cfg.Store.RedisPrefix != "" {
			prefix = cfg.Store.RedisPrefix
			opts = append(opts, redis.WithPrefix(prefix))
		}
		s := redis.New(cfg.Store.RedisAddr, "", 0, opts...)
		store, closer = s, s.Close
		locker = redis.NewLocker(s.Client(), prefix)
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	key, err := cfg.EncryptionKey()
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, nil, nil, err
	}
	if key != nil {
		store = middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	logger.Debug("Save store ready", "driver", cfg.Store.Driver, "encrypted", key != nil)
	return store, locker, closer, nil
}

// LoadGraph reads and builds the story. Structural diagnostics are returned;
// in strict mode they fail the load.
func LoadGraph(ctx context.Context, src ports.StorySource, cfg config.Config, logger *slog.Logger) (*domain.Graph, []domain.Diagnostic, error) {
	text, err := src.Read(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := []tabular.Option{tabular.WithLogger(logger)}
	if cfg.Marker != "" {
		opts = append(opts, tabular.WithMarker(cfg.Marker))
	}
	g, diags := tabular.New(opts...).Build(string(text))
	if cfg.Strict {
		if err := tabular.Strict(diags); err != nil {
			return nil, diags, fmt.Errorf("%s: %w", src.Name(), err)
		}
	}
	if g.Len() == 0 {
		return nil, diags, fmt.Errorf("%s: %w", src.Name(), domain.ErrEmptyGraph)
	}
	return g, diags, nil
}

// LoadGraph builds the configured story.
func (r *Runtime) LoadGraph(ctx context.Context) (*domain.Graph, []domain.Diagnostic, error) {
	if r.Source == nil {
		return nil, nil, errors.New("no story given: pass a story file or set story in storyline.yaml")
	}
	return LoadGraph(ctx, r.Source, r.Config, r.Logger)
}

// Assets returns the asset resolver, or nil when no asset dir is configured.
func (r *Runtime) Assets() ports.AssetResolver {
	if r.Config.Assets == "" {
		return nil
	}
	return file.NewAssetResolver(r.Config.Assets)
}

// NewManager creates a session manager over the runtime's store.
func (r *Runtime) NewManager(g *domain.Graph, hooks domain.LifecycleHooks) *session.Manager {
	opts := []session.Option{
		session.WithLogger(r.Logger),
		session.WithHooks(hooks),
		session.WithLabels(r.Config.DomainLabels()),
		session.WithSlots(r.Config.Slots),
	}
	if r.Locker != nil {
		opts = append(opts, session.WithLocker(r.Locker))
	}
	return session.NewManager(g, r.Store, opts...)
}
