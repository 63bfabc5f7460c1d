package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/session"
)

var (
	// ErrNoWizard is returned by Run when no engine was configured.
	ErrNoWizard = errors.New("runner requires a wizard (use WithWizard)")

	// ErrInterrupted is returned when a signal stopped the run. Progress was saved.
	ErrInterrupted = errors.New("interrupted")
)

// Runner drives a wizard step by step through an IOHandler, prompting for
// each visible field, and optionally persisting progress between prompts.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Guard confirms a submission. Defaults to ConfirmationGuard, or AutoApprove when headless.
	Guard  SubmitGuard
	Review Review

	Logger *slog.Logger

	// Sessions persists progress. If nil, sessions are ephemeral.
	Sessions  *session.Manager
	SessionID string

	Headless        bool
	InterruptSource <-chan struct{}

	wizard        ports.Wizard
	initialState  *domain.State
	initialValues map[string]any
}

type command int

const (
	cmdAdvance command = iota
	cmdBack
	cmdQuit
)

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run executes the wizard until it is submitted, the user quits or input ends.
// It returns the last state; on quit or end of input the error is nil and the
// state is saved when sessions are enabled.
func (r *Runner) Run(ctx context.Context) (*domain.State, error) {
	if r.wizard == nil {
		return nil, ErrNoWizard
	}
	handler := r.resolveHandler()
	guard := r.resolveGuard(handler)

	state, err := r.resolveInitialState(ctx, handler)
	if err != nil {
		return nil, err
	}

	signals := NewSignalManager(ctx, r.InterruptSource)
	defer signals.Stop()

	for !state.Terminal() {
		inputCtx := signals.Context()

		if err := handler.Output(inputCtx, r.wizard.View(state)); err != nil {
			return state, fmt.Errorf("output error: %w", err)
		}

		next, cmd, err := r.collect(inputCtx, handler, state)
		if err != nil {
			signals.CheckRace()
			if signals.Interrupted() {
				r.Logger.Debug("runner interrupted", "session_id", state.SessionID)
				return next, r.finish(ctx, next, ErrInterrupted)
			}
			if errors.Is(err, io.EOF) {
				return next, r.finish(ctx, next, nil)
			}
			return next, fmt.Errorf("input error: %w", err)
		}
		state = next

		switch cmd {
		case cmdQuit:
			return state, r.finish(ctx, state, nil)
		case cmdBack:
			state, err = r.wizard.Back(ctx, state)
		default:
			if r.wizard.View(state).IsLast() {
				state, err = r.submit(ctx, handler, guard, state)
			} else {
				state, _, err = r.wizard.Next(ctx, state)
			}
		}
		if err != nil {
			return state, err
		}

		if err := r.save(ctx, state); err != nil {
			return state, fmt.Errorf("critical persistence error: %w", err)
		}
	}

	if err := handler.SystemOutput(ctx, "Submitted. Thank you!"); err != nil {
		return state, err
	}
	if r.Sessions != nil && r.SessionID != "" {
		if err := r.Sessions.Delete(ctx, r.SessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			r.Logger.Warn("failed to remove submitted session", "session_id", r.SessionID, "err", err)
		}
	}
	return state, nil
}

// collect prompts for each visible field of the current step. Visibility is
// re-resolved after every answer so revealed dependents are asked in place.
func (r *Runner) collect(ctx context.Context, handler IOHandler, state *domain.State) (*domain.State, command, error) {
	for i := 0; ; i++ {
		fields := r.wizard.View(state).Visible()
		if i >= len(fields) {
			return state, cmdAdvance, nil
		}
		field := fields[i]

		text, err := handler.Input(ctx, field)
		if err != nil {
			return state, cmdAdvance, err
		}

		switch {
		case isQuit(text):
			return state, cmdQuit, nil
		case text == CommandBack:
			return state, cmdBack, nil
		case text == CommandSubmit:
			return state, cmdAdvance, nil
		case text == "":
			continue
		}

		next, err := r.wizard.SetFields(ctx, state, map[string]any{field.Name: parseAnswer(field, text)})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidValue) {
				if err := handler.SystemOutput(ctx, err.Error()); err != nil {
					return state, cmdAdvance, err
				}
				i--
				continue
			}
			return state, cmdAdvance, err
		}
		state = next
	}
}

func (r *Runner) submit(ctx context.Context, handler IOHandler, guard SubmitGuard, state *domain.State) (*domain.State, error) {
	pending, payload, failures, err := r.wizard.BeginSubmit(ctx, state)
	if err != nil {
		return state, err
	}
	if len(failures) > 0 {
		return pending, nil
	}

	ok, err := guard(ctx, pending, payload)
	if err != nil {
		return r.wizard.CompleteSubmit(ctx, pending, err)
	}
	if !ok {
		return r.wizard.CompleteSubmit(ctx, pending, ErrSubmitCancelled)
	}

	// Persist the pending state so a crash during delivery is visible on resume.
	if err := r.save(ctx, pending); err != nil {
		return r.wizard.CompleteSubmit(ctx, pending, err)
	}

	cause := r.wizard.Deliver(ctx, pending, payload)
	return r.wizard.CompleteSubmit(ctx, pending, cause)
}

// finish saves progress on an early exit and tells the user how to resume.
func (r *Runner) finish(ctx context.Context, state *domain.State, cause error) error {
	if err := r.save(context.WithoutCancel(ctx), state); err != nil {
		return errors.Join(cause, err)
	}
	if r.Sessions != nil && r.SessionID != "" {
		_ = r.Handler.SystemOutput(context.WithoutCancel(ctx), fmt.Sprintf("Progress saved. Resume with session %q.", r.SessionID))
	}
	return cause
}

func (r *Runner) save(ctx context.Context, state *domain.State) error {
	if r.Sessions == nil || r.SessionID == "" || state == nil {
		return nil
	}
	if err := r.Sessions.Save(ctx, r.SessionID, state); err != nil {
		return err
	}
	r.Logger.Debug("state saved", "session_id", r.SessionID, "step", state.CurrentStep)
	return nil
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r.Handler
}

func (r *Runner) resolveGuard(h IOHandler) SubmitGuard {
	if r.Guard != nil {
		return r.Guard
	}
	if r.Headless {
		return AutoApprove()
	}
	return ConfirmationGuard(h, r.Review)
}

// resolveInitialState resumes a saved session or starts a new one. A session
// saved while its submission was in flight is returned to the last step.
func (r *Runner) resolveInitialState(ctx context.Context, handler IOHandler) (*domain.State, error) {
	if r.initialState != nil {
		return r.initialState, nil
	}

	start := func(ctx context.Context) (*domain.State, error) {
		return r.wizard.Start(ctx, r.SessionID, r.initialValues)
	}
	if r.Sessions == nil || r.SessionID == "" {
		state, err := start(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create initial state: %w", err)
		}
		return state, nil
	}

	state, err := r.Sessions.Load(ctx, r.SessionID)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return r.Sessions.LoadOrStart(ctx, r.SessionID, start)
	case err != nil:
		return nil, fmt.Errorf("failed to load session %s: %w", r.SessionID, err)
	}

	if state.WizardID != r.wizard.Definition().ID {
		return nil, fmt.Errorf("session %s belongs to wizard %q", r.SessionID, state.WizardID)
	}
	if state.Status == domain.StatusPending {
		if state, err = r.wizard.CompleteSubmit(ctx, state, ErrInterrupted); err != nil {
			return nil, err
		}
	}
	if state, err = r.wizard.Resume(ctx, state); err != nil {
		return nil, err
	}
	_ = handler.SystemOutput(ctx, fmt.Sprintf("Resuming session %q at step %d.", r.SessionID, state.CurrentStep+1))
	return state, nil
}

// parseAnswer converts a text answer into the shape the field kind expects.
func parseAnswer(field domain.FieldView, text string) any {
	if text == ":clear" {
		switch field.Kind {
		case domain.KindBoolean:
			return false
		case domain.KindMultiChoice:
			return []string{}
		case domain.KindTimeRange:
			return map[string]any{"from": "", "to": ""}
		default:
			return ""
		}
	}
	if field.Kind == domain.KindTimeRange {
		from, to, _ := strings.Cut(text, "-")
		return map[string]any{"from": strings.TrimSpace(from), "to": strings.TrimSpace(to)}
	}
	return text
}
