package runner

import (
	"context"

	"github.com/clubdesk/formflow/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the current step, including failures from the last gate.
	Output(ctx context.Context, view domain.StepView) error

	// Input reads the answer for one field. Commands such as ":back" are
	// returned verbatim and interpreted by the Runner.
	Input(ctx context.Context, field domain.FieldView) (string, error)

	// SystemOutput presents a meta-message to the user (e.g. status updates).
	// This is distinct from step rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms step descriptions before output
// (e.g. Markdown to ANSI) without coupling this package to a terminal library.
type ContentRenderer func(string) (string, error)

// Styler decorates a line of text, for example to color failures.
type Styler func(string) string

// Commands recognized on any prompt.
const (
	CommandBack   = ":back"
	CommandQuit   = ":quit"
	CommandSubmit = ":submit"
)

func isQuit(s string) bool {
	return s == CommandQuit || s == "exit" || s == "quit"
}
