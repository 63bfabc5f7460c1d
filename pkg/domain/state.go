package domain

import "time"

// Status defines where the wizard is in its lifecycle.
type Status string

const (
	StatusActive    Status = "active"    // Accepting edits and navigation
	StatusPending   Status = "pending"   // Submission handed to the host, awaiting result
	StatusSubmitted Status = "submitted" // Terminal, one-shot
)

// State represents the current snapshot of a wizard session.
type State struct {
	// SessionID identifies the session across stores and adapters.
	SessionID string `json:"session_id"`

	// WizardID names the definition this state belongs to.
	WizardID string `json:"wizard_id"`

	// CurrentStep is the zero-based index of the active step.
	CurrentStep int `json:"current_step"`

	// Fields holds every declared field value.
	Fields FieldStore `json:"fields"`

	// LastFailures are the failures reported by the latest Next/Submit gate.
	LastFailures Failures `json:"last_failures,omitempty"`

	Status Status `json:"status"`

	// SubmissionError carries the message of the last failed submission.
	SubmissionError string `json:"submission_error,omitempty"`

	// History tracks the step indices visited, for debugging and diffs.
	History []int `json:"history"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean state at step 0.
func NewState(sessionID, wizardID string, fields FieldStore) *State {
	return &State{
		SessionID:   sessionID,
		WizardID:    wizardID,
		CurrentStep: 0,
		Fields:      fields,
		Status:      StatusActive,
		History:     []int{0},
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Fields = NewFieldStore(s.Fields.values)
	if s.LastFailures != nil {
		next.LastFailures = make(Failures, len(s.LastFailures))
		copy(next.LastFailures, s.LastFailures)
	}
	next.History = make([]int, len(s.History))
	copy(next.History, s.History)
	return &next
}

// Terminal reports whether the wizard reached SubmissionReady.
func (s *State) Terminal() bool {
	return s.Status == StatusSubmitted
}

// Payload is the backend-shaped submission computed from a FieldStore.
// It is owned by the caller of the assembler and never stored in State.
type Payload map[string]any
