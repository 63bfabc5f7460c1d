package formflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/internal/runtime"
	loamAdapter "github.com/clubdesk/formflow/pkg/adapters/loam"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/schema"
)

// ErrNotWatchable is returned by Watch when the loader cannot report changes.
var ErrNotWatchable = errors.New("current loader does not support watching")

// Engine is the high-level entry point for the formflow library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime     *runtime.Engine
	loader      ports.DefinitionLoader
	submitter   ports.Submitter
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	strict      bool
	runtimeOpts []runtime.EngineOption
	Name        string
}

var _ ports.Wizard = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Multiple calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom DefinitionLoader, bypassing the default Loam initialization.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithSubmitter sets the backend that receives assembled payloads.
func WithSubmitter(s ports.Submitter) Option {
	return func(e *Engine) {
		e.submitter = s
	}
}

// WithStrictNavigation makes Next/Back at the boundaries return ErrOutOfRange
// instead of being silent no-ops.
func WithStrictNavigation(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRuntimeOptions passes low-level options (such as a clock) to the runtime.
func WithRuntimeOptions(opts ...runtime.EngineOption) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, opts...)
	}
}

// New builds an Engine for an in-memory definition.
func New(def *schema.Definition, opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", schema.ErrInvalidDefinition)
	}
	eng := &Engine{Name: def.ID}
	for _, opt := range opts {
		opt(eng)
	}
	if err := eng.init(def); err != nil {
		return nil, err
	}
	return eng, nil
}

// Open loads wizardID from a definitions directory and builds an Engine for it.
// When WithLoader is given, path is ignored and the wizard is read from that loader.
func Open(ctx context.Context, path, wizardID string, opts ...Option) (*Engine, error) {
	eng := &Engine{Name: wizardID}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if path == "" {
			return nil, fmt.Errorf("path is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		loader, err := loamAdapter.Open(absPath)
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}

	def, err := eng.loader.Get(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	if err := eng.init(def); err != nil {
		return nil, err
	}
	return eng, nil
}

func (e *Engine) init(def *schema.Definition) error {
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.logger = e.logger.With("wizard", def.ID)

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithStrictNavigation(e.strict),
	}
	if e.submitter != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithSubmitter(e.submitter))
	}
	runtimeOpts = append(runtimeOpts, e.runtimeOpts...)

	rt, err := runtime.NewEngine(def, runtimeOpts...)
	if err != nil {
		return err
	}
	e.runtime = rt
	return nil
}

// Definition returns the wizard the engine runs.
func (e *Engine) Definition() *schema.Definition {
	return e.runtime.Definition()
}

// Start creates the initial state at the first step and fires the step enter hook.
func (e *Engine) Start(ctx context.Context, sessionID string, initial map[string]any) (*domain.State, error) {
	return e.runtime.Start(ctx, sessionID, initial)
}

// SetField returns a new state with one field updated.
func (e *Engine) SetField(ctx context.Context, state *domain.State, name string, value any) (*domain.State, error) {
	return e.runtime.SetField(ctx, state, name, value)
}

// SetFields applies a batch of edits, all or nothing.
func (e *Engine) SetFields(ctx context.Context, state *domain.State, values map[string]any) (*domain.State, error) {
	return e.runtime.SetFields(ctx, state, values)
}

// Next validates the current step and advances when it passes.
func (e *Engine) Next(ctx context.Context, state *domain.State) (*domain.State, domain.Failures, error) {
	return e.runtime.Next(ctx, state)
}

// Back moves to the previous step without validating.
func (e *Engine) Back(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Back(ctx, state)
}

// Submit runs the final gate and hands the payload to the submitter.
func (e *Engine) Submit(ctx context.Context, state *domain.State) (*domain.State, domain.Failures, error) {
	return e.runtime.Submit(ctx, state)
}

// BeginSubmit gates and assembles, returning a pending state and its payload.
func (e *Engine) BeginSubmit(ctx context.Context, state *domain.State) (*domain.State, domain.Payload, domain.Failures, error) {
	return e.runtime.BeginSubmit(ctx, state)
}

// Deliver hands a payload from BeginSubmit to the submitter.
func (e *Engine) Deliver(ctx context.Context, state *domain.State, payload domain.Payload) error {
	return e.runtime.Deliver(ctx, state, payload)
}

// CompleteSubmit records the delivery outcome on a pending state.
func (e *Engine) CompleteSubmit(ctx context.Context, state *domain.State, cause error) (*domain.State, error) {
	return e.runtime.CompleteSubmit(ctx, state, cause)
}

// RecoverPending turns a pending state left behind by an interrupted
// delivery into a failed attempt that can be retried.
func (e *Engine) RecoverPending(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.RecoverPending(ctx, state)
}

// Resume rewinds a state loaded from a store to the first earlier step that
// no longer validates, typically because a password was not persisted.
func (e *Engine) Resume(ctx context.Context, state *domain.State) (*domain.State, error) {
	return e.runtime.Resume(ctx, state)
}

// View describes the current step for rendering.
func (e *Engine) View(state *domain.State) domain.StepView {
	return e.runtime.View(state)
}

// Validate checks one step against the state's fields without side effects.
func (e *Engine) Validate(state *domain.State, step int) domain.Failures {
	return e.runtime.Validate(state, step)
}

// Assemble computes the payload the submitter would receive.
func (e *Engine) Assemble(state *domain.State) (domain.Payload, error) {
	return e.runtime.Assemble(state)
}

// Watch returns a channel that signals when the underlying definitions change.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, ErrNotWatchable
}

// Loader returns the DefinitionLoader the engine was opened from, or nil.
func (e *Engine) Loader() ports.DefinitionLoader {
	return e.loader
}
