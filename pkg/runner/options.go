package runner

import (
	"log/slog"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/session"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithWizard configures the engine the Runner drives. Required.
func WithWizard(w ports.Wizard) Option {
	return func(r *Runner) {
		r.wizard = w
	}
}

// WithSessions enables resume-after-exit: progress is saved through the
// manager after every step and removed once submitted.
func WithSessions(m *session.Manager) Option {
	return func(r *Runner) {
		r.Sessions = m
	}
}

// WithSessionID sets the session ID. Required with WithSessions.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithHeadless skips the confirmation prompt before submitting.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

// WithGuard configures the pre-submit guard.
func WithGuard(guard SubmitGuard) Option {
	return func(r *Runner) {
		r.Guard = guard
	}
}

// WithReview configures the lines shown by the default confirmation guard.
func WithReview(review Review) Option {
	return func(r *Runner) {
		r.Review = review
	}
}

// WithInterruptSource sets a channel that signals the runner to stop waiting for input.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.InterruptSource = ch
	}
}

// WithInitialValues pre-fills fields of a new session.
func WithInitialValues(values map[string]any) Option {
	return func(r *Runner) {
		r.initialValues = values
	}
}

// WithInitialState starts from an existing state instead of a new session.
func WithInitialState(state *domain.State) Option {
	return func(r *Runner) {
		r.initialState = state
	}
}
