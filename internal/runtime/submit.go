package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/clubdesk/formflow/pkg/domain"
)

// Submit runs the final gate, hands the payload to the Submitter and records
// the outcome. A failing gate never reaches the Submitter. When the Submitter
// fails, the returned state is back on the last step with SubmissionError set
// and the error is a *domain.SubmissionError.
func (e *Engine) Submit(ctx context.Context, state *domain.State) (*domain.State, domain.Failures, error) {
	if e.submitter == nil {
		return nil, nil, ErrNoSubmitter
	}

	pending, payload, failures, err := e.BeginSubmit(ctx, state)
	if err != nil || len(failures) > 0 {
		return pending, failures, err
	}

	cause := e.Deliver(ctx, pending, payload)

	done, err := e.CompleteSubmit(ctx, pending, cause)
	if err != nil {
		return nil, nil, err
	}
	if cause != nil {
		return done, nil, &domain.SubmissionError{SessionID: state.SessionID, Cause: cause}
	}
	return done, nil, nil
}

// BeginSubmit validates the last step and assembles the payload. On success
// the returned state is pending; a second submission is refused until
// CompleteSubmit runs.
func (e *Engine) BeginSubmit(ctx context.Context, state *domain.State) (*domain.State, domain.Payload, domain.Failures, error) {
	switch state.Status {
	case domain.StatusSubmitted:
		return nil, nil, nil, domain.ErrAlreadySubmitted
	case domain.StatusPending:
		return nil, nil, nil, domain.ErrSubmissionPending
	}
	if state.CurrentStep != e.def.LastStep() {
		return nil, nil, nil, domain.ErrNotFinalStep
	}

	failures := e.validator.Validate(state.CurrentStep, state.Fields)
	next := state.Snapshot()
	next.LastFailures = failures
	e.stamp(next)

	if len(failures) > 0 {
		e.logger.Debug("submit blocked", "session_id", state.SessionID, "failures", len(failures))
		e.emitStep(ctx, e.hooks.OnValidationFailed, domain.EventValidationFailed, next, failures)
		return next, nil, failures, nil
	}

	payload, err := e.assembler.Assemble(state.Fields)
	if err != nil {
		e.logger.Error("payload assembly failed", "session_id", state.SessionID, "err", err)
		return nil, nil, nil, err
	}

	next.Status = domain.StatusPending
	next.SubmissionError = ""
	return next, payload, nil, nil
}

// Deliver hands the payload to the Submitter, firing the submit hooks.
func (e *Engine) Deliver(ctx context.Context, state *domain.State, payload domain.Payload) error {
	if e.submitter == nil {
		return ErrNoSubmitter
	}

	if e.hooks.OnSubmit != nil {
		e.hooks.OnSubmit(ctx, &domain.SubmitEvent{EventBase: e.event(domain.EventSubmit, state)})
	}

	start := e.now()
	err := e.submitter.Submit(ctx, e.def.ID, payload)
	elapsed := e.now().Sub(start)

	if e.hooks.OnSubmitResult != nil {
		e.hooks.OnSubmitResult(ctx, &domain.SubmitEvent{
			EventBase: e.event(domain.EventSubmitResult, state),
			Duration:  elapsed,
			Err:       err,
		})
	}

	if err != nil {
		e.logger.Warn("submission failed", "session_id", state.SessionID, "duration", elapsed.Round(time.Millisecond), "err", err)
	} else {
		e.logger.Info("submission accepted", "session_id", state.SessionID, "duration", elapsed.Round(time.Millisecond))
	}
	return err
}

// CompleteSubmit records the result of a delivery. Success makes the state
// terminal. Failure returns to the last step, active again, so the user may
// correct fields and submit again.
func (e *Engine) CompleteSubmit(ctx context.Context, state *domain.State, cause error) (*domain.State, error) {
	if state.Status != domain.StatusPending {
		return nil, domain.ErrNoSubmissionPending
	}

	next := state.Snapshot()
	e.stamp(next)

	if cause == nil {
		next.Status = domain.StatusSubmitted
		next.SubmissionError = ""
		next.LastFailures = nil
		return next, nil
	}

	var se *domain.SubmissionError
	msg := cause.Error()
	if errors.As(cause, &se) {
		msg = se.Cause.Error()
	}

	next.Status = domain.StatusActive
	next.SubmissionError = msg
	if last := e.def.LastStep(); next.CurrentStep != last {
		next.CurrentStep = last
		next.History = append(next.History, last)
		e.emitStep(ctx, e.hooks.OnStepEnter, domain.EventStepEnter, next, nil)
	}
	return next, nil
}

// RecoverPending settles a pending state whose delivery will never report
// back as a failed attempt, so the user lands on the last step and can
// submit again. Other states come back unchanged.
func (e *Engine) RecoverPending(ctx context.Context, state *domain.State) (*domain.State, error) {
	if state.Status != domain.StatusPending {
		return state, nil
	}
	e.logger.Warn("recovering interrupted submission", "session_id", state.SessionID, "wizard_id", state.WizardID)
	return e.CompleteSubmit(ctx, state, domain.ErrSubmissionInterrupted)
}
