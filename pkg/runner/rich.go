package runner

import (
	"context"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
)

// RichResponse combines state and the rendered step for rich clients (Web, MCP, etc).
type RichResponse struct {
	State    *domain.State   `json:"state"`
	View     domain.StepView `json:"view"`
	Failures domain.Failures `json:"failures,omitempty"`
	Terminal bool            `json:"terminal"`
}

// Respond builds a RichResponse for state.
func Respond(w ports.Wizard, state *domain.State, failures domain.Failures) *RichResponse {
	return &RichResponse{
		State:    state,
		View:     w.View(state),
		Failures: failures,
		Terminal: state.Terminal(),
	}
}

// NextAndRender advances (or submits on the last step) and renders the result.
// A submitter failure is returned together with the response so clients can
// show the state the wizard fell back to.
func NextAndRender(ctx context.Context, w ports.Wizard, state *domain.State) (*RichResponse, error) {
	var (
		next     *domain.State
		failures domain.Failures
		err      error
	)
	if state.CurrentStep == w.Definition().LastStep() {
		next, failures, err = w.Submit(ctx, state)
	} else {
		next, failures, err = w.Next(ctx, state)
	}
	if next == nil {
		return nil, err
	}
	return Respond(w, next, failures), err
}

// BackAndRender moves back one step and renders the result.
func BackAndRender(ctx context.Context, w ports.Wizard, state *domain.State) (*RichResponse, error) {
	next, err := w.Back(ctx, state)
	if err != nil {
		return nil, err
	}
	return Respond(w, next, nil), nil
}
