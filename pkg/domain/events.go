package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter        EventType = "step_enter"
	EventStepLeave        EventType = "step_leave"
	EventValidationFailed EventType = "validation_failed"
	EventSubmit           EventType = "submit"
	EventSubmitResult     EventType = "submit_result"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	WizardID  string    `json:"wizard_id"`
}

// StepEvent represents entering or leaving a step, or a failed gate on it.
type StepEvent struct {
	EventBase
	StepIndex int      `json:"step_index"`
	StepID    string   `json:"step_id"`
	Failures  Failures `json:"failures,omitempty"`
}

// SubmitEvent represents a hand-off to the submitter and its outcome.
type SubmitEvent struct {
	EventBase
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter        func(context.Context, *StepEvent)
	OnStepLeave        func(context.Context, *StepEvent)
	OnValidationFailed func(context.Context, *StepEvent)
	OnSubmit           func(context.Context, *SubmitEvent)
	OnSubmitResult     func(context.Context, *SubmitEvent)
}

// Merge combines hooks so both sets fire, a first.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:        chainStep(h.OnStepEnter, other.OnStepEnter),
		OnStepLeave:        chainStep(h.OnStepLeave, other.OnStepLeave),
		OnValidationFailed: chainStep(h.OnValidationFailed, other.OnValidationFailed),
		OnSubmit:           chainSubmit(h.OnSubmit, other.OnSubmit),
		OnSubmitResult:     chainSubmit(h.OnSubmitResult, other.OnSubmitResult),
	}
}

func chainStep(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainSubmit(a, b func(context.Context, *SubmitEvent)) func(context.Context, *SubmitEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *SubmitEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
