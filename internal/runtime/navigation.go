package runtime

import (
	"context"

	"github.com/clubdesk/formflow/pkg/domain"
)

// Next validates the current step. On failures the state stays on the step
// with LastFailures set; otherwise it advances by one. On the last step Next
// is a no-op (domain.ErrOutOfRange in strict mode): the final step submits.
func (e *Engine) Next(ctx context.Context, state *domain.State) (*domain.State, domain.Failures, error) {
	if state.Status == domain.StatusSubmitted {
		return nil, nil, domain.ErrAlreadySubmitted
	}

	current := state.CurrentStep
	if current < 0 || current >= e.def.LastStep() {
		if e.strict {
			return nil, nil, domain.ErrOutOfRange
		}
		return state.Snapshot(), nil, nil
	}

	failures := e.validator.Validate(current, state.Fields)
	next := state.Snapshot()
	next.LastFailures = failures
	e.stamp(next)

	if len(failures) > 0 {
		e.logger.Debug("step blocked", "session_id", state.SessionID, "step", current, "failures", len(failures))
		e.emitStep(ctx, e.hooks.OnValidationFailed, domain.EventValidationFailed, next, failures)
		return next, failures, nil
	}

	e.emitStep(ctx, e.hooks.OnStepLeave, domain.EventStepLeave, next, nil)
	next.CurrentStep = current + 1
	next.History = append(next.History, next.CurrentStep)
	e.logger.Debug("step advanced", "session_id", state.SessionID, "from", current, "to", next.CurrentStep)
	e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, next, nil)
	return next, nil, nil
}

// Back moves to the previous step unconditionally. It never validates and
// never clears the fields of the step being left. On the first step it is a
// no-op (domain.ErrOutOfRange in strict mode).
func (e *Engine) Back(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state.Status == domain.StatusSubmitted {
		return nil, domain.ErrAlreadySubmitted
	}

	current := state.CurrentStep
	if current <= 0 || current > e.def.LastStep() {
		if e.strict {
			return nil, domain.ErrOutOfRange
		}
		return state.Snapshot(), nil
	}

	next := state.Snapshot()
	next.LastFailures = nil
	e.stamp(next)

	e.emitStep(ctx, e.hooks.OnStepLeave, domain.EventStepLeave, next, nil)
	next.CurrentStep = current - 1
	next.History = append(next.History, next.CurrentStep)
	e.logger.Debug("step back", "session_id", state.SessionID, "from", current, "to", next.CurrentStep)
	e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, next, nil)
	return next, nil
}

// Resume rewinds a restored state to the earliest earlier step that no longer
// passes validation, with its failures set. Stores drop sensitive fields, so
// a state loaded after a restart may sit past a step that now needs input.
// States that validate, are pending or are submitted come back unchanged.
func (e *Engine) Resume(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state.Status != domain.StatusActive {
		return state, nil
	}
	last := min(state.CurrentStep, len(e.def.Steps))
	for step := 0; step < last; step++ {
		failures := e.validator.Validate(step, state.Fields)
		if len(failures) == 0 {
			continue
		}
		next := state.Snapshot()
		next.LastFailures = failures
		next.CurrentStep = step
		next.History = append(next.History, step)
		e.stamp(next)
		e.logger.Debug("session rewound", "session_id", state.SessionID, "from", state.CurrentStep, "to", step)
		e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, next, nil)
		return next, nil
	}
	return state, nil
}
