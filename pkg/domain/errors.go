package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when a field name was never declared by the wizard.
	ErrUnknownField = errors.New("unknown field")

	// ErrOutOfRange is returned when navigating past the first or last step.
	ErrOutOfRange = errors.New("step out of range")

	// ErrNotFinalStep is returned when Submit is called before the last step.
	ErrNotFinalStep = errors.New("submit is only allowed on the final step")

	// ErrSubmissionPending is returned while a submission is outstanding.
	ErrSubmissionPending = errors.New("submission already in flight")

	// ErrAlreadySubmitted is returned once the wizard reached its terminal state.
	ErrAlreadySubmitted = errors.New("wizard already submitted")

	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrWizardNotFound is returned when a definition loader has no wizard with that ID.
	ErrWizardNotFound = errors.New("wizard not found")

	// ErrInvalidValue is returned when a value has the wrong shape for its field kind.
	ErrInvalidValue = errors.New("invalid value")

	// ErrSubmissionInterrupted records a pending submission whose delivery
	// never reported back, typically because the process stopped.
	ErrSubmissionInterrupted = errors.New("submission interrupted, please submit again")

	// ErrNoSubmissionPending is returned when completing a submission that was never started.
	ErrNoSubmissionPending = errors.New("no submission pending")
)

// UnknownFieldError names the offending field. It matches ErrUnknownField with errors.Is.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Field)
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// ValueError names the field whose value could not be stored.
type ValueError struct {
	Field string
	Cause error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value for field %q: %v", e.Field, e.Cause)
}

func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func (e *ValueError) Unwrap() error {
	return e.Cause
}

// InvariantError reports a state the validator should have made impossible,
// e.g. a non-numeric value reaching the assembler.
type InvariantError struct {
	Field string
	Cause error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated for field %q: %v", e.Field, e.Cause)
}

func (e *InvariantError) Unwrap() error {
	return e.Cause
}

// SubmissionError wraps a failure reported by the external submitter.
type SubmissionError struct {
	SessionID string
	Cause     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission for session %s failed: %v", e.SessionID, e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}
