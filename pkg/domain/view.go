package domain

// FieldView is what a renderer needs to draw one field of the current step.
type FieldView struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Help     string    `json:"help,omitempty"`
	Kind     FieldKind `json:"kind"`
	Value    Value     `json:"value"`
	Options  []string  `json:"options,omitempty"`
	Visible  bool      `json:"visible"`
	Required bool      `json:"required"`
	Failures Failures  `json:"failures,omitempty"`

	// Multiline fields take one entry per line.
	Multiline bool `json:"multiline,omitempty"`
}

// StepView describes the current step of a session.
type StepView struct {
	SessionID   string      `json:"session_id"`
	Index       int         `json:"index"`
	Total       int         `json:"total"`
	ID          string      `json:"id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Fields      []FieldView `json:"fields"`
	Status      Status      `json:"status"`
	// SubmissionError is set after a failed submission until the next attempt.
	SubmissionError string `json:"submission_error,omitempty"`
}

// IsFirst reports whether Back would be a no-op.
func (v StepView) IsFirst() bool { return v.Index == 0 }

// IsLast reports whether the step submits instead of advancing.
func (v StepView) IsLast() bool { return v.Index == v.Total-1 }

// Visible returns only the fields that should be rendered.
func (v StepView) Visible() []FieldView {
	out := make([]FieldView, 0, len(v.Fields))
	for _, f := range v.Fields {
		if f.Visible {
			out = append(out, f)
		}
	}
	return out
}
