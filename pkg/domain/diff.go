package domain

// StateDiff represents the changes between two states.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentStep *int    `json:"current_step,omitempty"`
	Status      *Status `json:"status,omitempty"`

	// Fields contains only changed values. Keys are never removed from a
	// store, so there is no deletion marker.
	Fields map[string]any `json:"fields,omitempty"`

	// Failures is set whenever the latest gate result changed.
	Failures *Failures `json:"failures,omitempty"`

	SubmissionError *string `json:"submission_error,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{SessionID: newState.SessionID}

	if oldState == nil || oldState.CurrentStep != newState.CurrentStep {
		step := newState.CurrentStep
		diff.CurrentStep = &step
	}
	if oldState == nil || oldState.Status != newState.Status {
		status := newState.Status
		diff.Status = &status
	}
	if oldState == nil || !SameSet(oldState.LastFailures, newState.LastFailures) {
		if oldState != nil || len(newState.LastFailures) > 0 {
			failures := newState.LastFailures
			diff.Failures = &failures
		}
	}
	if (oldState == nil && newState.SubmissionError != "") ||
		(oldState != nil && oldState.SubmissionError != newState.SubmissionError) {
		msg := newState.SubmissionError
		diff.SubmissionError = &msg
	}

	diff.Fields = diffFields(oldState, newState)

	if diff.CurrentStep == nil &&
		diff.Status == nil &&
		diff.Failures == nil &&
		diff.SubmissionError == nil &&
		len(diff.Fields) == 0 {
		return nil
	}

	return diff
}

func diffFields(oldState, newState *State) map[string]any {
	changes := make(map[string]any)
	for _, key := range newState.Fields.Keys() {
		newVal := newState.Fields.Value(key)
		if oldState == nil {
			changes[key] = CloneValue(newVal)
			continue
		}
		if !Equal(oldState.Fields.Value(key), newVal) {
			changes[key] = CloneValue(newVal)
		}
	}
	return changes
}
