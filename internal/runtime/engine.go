package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/google/uuid"
)

// ErrNoSubmitter is returned by Submit when the engine was built without a Submitter.
var ErrNoSubmitter = errors.New("no submitter configured")

// Engine is the step controller. It holds only the wizard definition and its
// collaborators: every operation takes a state and returns a new one.
type Engine struct {
	def       *schema.Definition
	resolver  *Resolver
	validator *Validator
	assembler *Assembler

	submitter ports.Submitter
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	strict    bool
	now       func() time.Time
}

// EngineOption configures the runtime engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks. Calling it more than once
// merges the hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithSubmitter sets the collaborator that receives the final payload.
func WithSubmitter(s ports.Submitter) EngineOption {
	return func(e *Engine) {
		e.submitter = s
	}
}

// WithStrictNavigation makes Next on the last step and Back on the first
// return domain.ErrOutOfRange instead of being silent no-ops.
func WithStrictNavigation(strict bool) EngineOption {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithClock overrides time.Now for UpdatedAt stamps and hook timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine validates def and builds its resolver, validator and assembler.
func NewEngine(def *schema.Definition, opts ...EngineOption) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("definition is required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	resolver := NewResolver(def)
	validator, err := NewValidator(def, resolver)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		def:       def,
		resolver:  resolver,
		validator: validator,
		assembler: NewAssembler(def, resolver),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("wizard", def.ID)
	return e, nil
}

// Definition returns the wizard definition.
func (e *Engine) Definition() *schema.Definition {
	return e.def
}

// Resolver exposes visibility and requiredness rules.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Start creates a state at step 0 with every field at its default, then
// applies initial values. An empty sessionID gets a random UUID.
func (e *Engine) Start(ctx context.Context, sessionID string, initial map[string]any) (*domain.State, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	fields := e.def.Defaults()
	for _, name := range sortedKeys(initial) {
		var err error
		if fields, err = e.setValue(fields, name, initial[name]); err != nil {
			return nil, err
		}
	}

	state := domain.NewState(sessionID, e.def.ID, fields)
	state.UpdatedAt = e.now()

	e.logger.Debug("wizard started", "session_id", sessionID, "steps", len(e.def.Steps))
	e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, state, nil)
	return state, nil
}

// SetField stores one value and returns the new state. Values are coerced to
// the field's kind. Editing is allowed while a submission is pending, but not
// once the wizard was submitted.
func (e *Engine) SetField(ctx context.Context, state *domain.State, name string, value any) (*domain.State, error) {
	return e.SetFields(ctx, state, map[string]any{name: value})
}

// SetFields stores several values; either all are applied or none.
func (e *Engine) SetFields(ctx context.Context, state *domain.State, values map[string]any) (*domain.State, error) {
	if state.Status == domain.StatusSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}

	fields := state.Fields
	for _, name := range sortedKeys(values) {
		var err error
		if fields, err = e.setValue(fields, name, values[name]); err != nil {
			return nil, err
		}
	}

	next := state.Snapshot()
	next.Fields = fields
	next.UpdatedAt = e.now()
	return next, nil
}

func (e *Engine) setValue(fields domain.FieldStore, name string, raw any) (domain.FieldStore, error) {
	f, ok := e.def.Field(name)
	if !ok {
		return fields, &domain.UnknownFieldError{Field: name}
	}
	v, err := schema.CoerceField(f, raw)
	if err != nil {
		return fields, &domain.ValueError{Field: name, Cause: err}
	}
	t, err := schema.TypeOfField(f)
	if err != nil {
		return fields, err
	}
	if err := t.Validate(v); err != nil {
		return fields, &domain.ValueError{Field: name, Cause: err}
	}
	return fields.Set(name, v)
}

// Validate runs the step validator against the state's fields.
func (e *Engine) Validate(state *domain.State, step int) domain.Failures {
	return e.validator.Validate(step, state.Fields)
}

// Assemble builds the submission payload for the state's fields.
func (e *Engine) Assemble(state *domain.State) (domain.Payload, error) {
	return e.assembler.Assemble(state.Fields)
}

func (e *Engine) stamp(state *domain.State) {
	state.UpdatedAt = e.now()
}

func (e *Engine) event(kind domain.EventType, state *domain.State) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now(),
		Type:      kind,
		SessionID: state.SessionID,
		WizardID:  state.WizardID,
	}
}

func (e *Engine) emitStep(ctx context.Context, hook func(context.Context, *domain.StepEvent), kind domain.EventType, state *domain.State, failures domain.Failures) {
	if hook == nil {
		return
	}
	step := state.CurrentStep
	id := ""
	if step >= 0 && step < len(e.def.Steps) {
		id = e.def.Steps[step].ID
	}
	hook(ctx, &domain.StepEvent{
		EventBase: e.event(kind, state),
		StepIndex: step,
		StepID:    id,
		Failures:  failures,
	})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
