package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/config"
	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/pkg/adapters/file"
	"github.com/clubdesk/formflow/pkg/adapters/loam"
	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/adapters/process"
	"github.com/clubdesk/formflow/pkg/adapters/redis"
	"github.com/clubdesk/formflow/pkg/adapters/sqlite"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/persistence/middleware"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/registry"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/clubdesk/formflow/pkg/session"
)

// App is the context shared by all commands: the loaded configuration and
// the logger built from it. Backends are opened on demand and released by
// Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	loader  ports.DefinitionLoader
	closers []io.Closer
}

// NewApp builds the application context. Logs go to stderr so they never mix
// with the wizard prompts or JSON output on stdout.
func NewApp(cfg *config.Config) (*App, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Logger: logging.New(level)}, nil
}

// Close releases every backend opened through the app.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Loader reads wizard definitions from the configured directory, or serves
// the built-in member registration wizard when none is configured.
func (a *App) Loader() (ports.DefinitionLoader, error) {
	if a.loader != nil {
		return a.loader, nil
	}
	if a.Config.Definitions == "" {
		l, err := memory.NewLoader(registration.Definition())
		if err != nil {
			return nil, err
		}
		a.loader = l
		return l, nil
	}
	l, err := loam.Open(a.Config.Definitions)
	if err != nil {
		return nil, fmt.Errorf("failed to open definitions: %w", err)
	}
	a.loader = l
	return l, nil
}

// Definitions loads every wizard the loader knows, sorted by ID.
func (a *App) Definitions(ctx context.Context) ([]*schema.Definition, error) {
	loader, err := a.Loader()
	if err != nil {
		return nil, err
	}
	ids, err := loader.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	defs := make([]*schema.Definition, 0, len(ids))
	for _, id := range ids {
		def, err := loader.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Sessions opens the configured state store. Sensitive fields never reach
// it, and states are encrypted at rest when a key is configured.
func (a *App) Sessions(ctx context.Context) (*session.Manager, error) {
	cfg := a.Config.Store
	var (
		store ports.StateStore
		opts  = []session.Option{session.WithLogger(a.Logger)}
	)
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Dir)
	case config.BackendRedis:
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithTTL(cfg.Redis.TTL),
			redis.WithPrefix(cfg.Redis.Prefix),
		)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis unavailable at %s: %w", cfg.Redis.Addr, err)
		}
		a.closers = append(a.closers, rs)
		store = rs
		opts = append(opts,
			session.WithLocker(redis.NewLocker(rs.Client(), cfg.Redis.Prefix)),
			session.WithLockTTL(cfg.Redis.LockTTL),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}

	defs, err := a.Definitions(ctx)
	if err != nil {
		return nil, err
	}
	sensitive, err := middleware.NewSensitiveMiddleware(defs)
	if err != nil {
		return nil, err
	}
	// Outermost first: sensitive values are dropped before encryption sees the state.
	mws := []middleware.Middleware{sensitive}
	if cfg.EncryptionKey != "" {
		enc, err := a.encryption()
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}

	return session.NewManager(middleware.Chain(store, mws...), opts...), nil
}

func (a *App) encryption() (middleware.Middleware, error) {
	active, err := middleware.ParseKey(a.Config.Store.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	var fallbacks [][]byte
	for _, k := range a.Config.Store.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("invalid fallback key: %w", err)
		}
		fallbacks = append(fallbacks, key)
	}
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallbacks,
	})
}

// Submitter assembles the submission chain: configured hooks first, then
// the SQLite registration sink. With neither, submissions are only logged.
func (a *App) Submitter(ctx context.Context) (ports.Submitter, error) {
	cfg := a.Config.Sink
	var chain submitters

	if cfg.Hooks != "" {
		hooks, err := process.LoadHooks(cfg.Hooks)
		if err != nil {
			return nil, err
		}
		opts := []process.RunnerOption{
			process.WithHooks(hooks),
			process.WithBaseDir(filepath.Dir(cfg.Hooks)),
		}
		if cfg.HookTimeout > 0 {
			opts = append(opts, process.WithTimeout(cfg.HookTimeout))
		}
		chain = append(chain, process.NewRunner(opts...))
	}

	if cfg.SQLite != "" {
		var opts []sqlite.Option
		if cfg.BcryptCost > 0 {
			opts = append(opts, sqlite.WithBcryptCost(cfg.BcryptCost))
		}
		sink, err := sqlite.Open(ctx, cfg.SQLite, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sink)
		chain = append(chain, sink)
	}

	if len(chain) == 0 {
		return ports.SubmitterFunc(func(ctx context.Context, wizardID string, payload domain.Payload) error {
			keys := make([]string, 0, len(payload))
			for k := range payload {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			a.Logger.InfoContext(ctx, "submission received", "wizard_id", wizardID, "fields", keys)
			return nil
		}), nil
	}
	return chain, nil
}

// submitters runs each submitter in order and stops at the first failure.
type submitters []ports.Submitter

func (s submitters) Submit(ctx context.Context, wizardID string, payload domain.Payload) error {
	for _, sub := range s {
		if err := sub.Submit(ctx, wizardID, payload); err != nil {
			return err
		}
	}
	return nil
}

// Registry builds the engine cache over the app's loader and submitter.
func (a *App) Registry(ctx context.Context, opts ...formflow.Option) (*registry.Registry, error) {
	loader, err := a.Loader()
	if err != nil {
		return nil, err
	}
	sub, err := a.Submitter(ctx)
	if err != nil {
		return nil, err
	}
	base := []formflow.Option{
		formflow.WithSubmitter(sub),
		formflow.WithLogger(a.Logger),
	}
	return registry.New(loader, append(base, opts...)...), nil
}
