package ports

import (
	"context"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Wizard is the driving port: the operations adapters (HTTP, MCP, terminal)
// perform on a session. Every call takes the current state and returns a new
// one; the receiver never holds session state.
type Wizard interface {
	// Definition returns the wizard being run.
	Definition() *schema.Definition

	// Start creates a state at step 0 with defaults merged with initial values.
	Start(ctx context.Context, sessionID string, initial map[string]any) (*domain.State, error)

	// SetFields updates several fields at once; either all are applied or none.
	SetFields(ctx context.Context, state *domain.State, values map[string]any) (*domain.State, error)

	// Next validates the current step and advances when it passes.
	Next(ctx context.Context, state *domain.State) (*domain.State, domain.Failures, error)

	// Back moves to the previous step without validating.
	Back(ctx context.Context, state *domain.State) (*domain.State, error)

	// Submit validates the final step and hands the payload to the Submitter.
	Submit(ctx context.Context, state *domain.State) (*domain.State, domain.Failures, error)

	// BeginSubmit runs the final gate and, when it passes, returns the pending
	// state with the assembled payload. Callers that persist state between the
	// phases save the pending state before delivering.
	BeginSubmit(ctx context.Context, state *domain.State) (*domain.State, domain.Payload, domain.Failures, error)

	// Deliver hands a payload to the configured Submitter.
	Deliver(ctx context.Context, state *domain.State, payload domain.Payload) error

	// CompleteSubmit records the outcome of Deliver on a pending state.
	CompleteSubmit(ctx context.Context, state *domain.State, cause error) (*domain.State, error)

	// Resume rewinds a restored state to the first earlier step that no
	// longer validates (sensitive fields are not persisted).
	Resume(ctx context.Context, state *domain.State) (*domain.State, error)

	// View describes the current step for rendering.
	View(state *domain.State) domain.StepView
}
