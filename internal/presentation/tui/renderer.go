package tui

import (
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/muesli/termenv"
)

// NewRenderer returns a runner.ContentRenderer backed by glamour. An empty or
// "auto" theme detects the terminal background; "plain" disables rendering.
func NewRenderer(theme string) (runner.ContentRenderer, error) {
	if theme == "plain" {
		return nil, nil
	}
	opt := glamour.WithAutoStyle()
	if theme != "" && theme != "auto" {
		opt = glamour.WithStandardStyle(theme)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(80))
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// Styles returns failure and title stylers for output written to w. They are
// identity functions when w is not a color terminal.
func Styles(w io.Writer) (failure, title runner.Styler) {
	out := termenv.NewOutput(w)
	if out.Profile == termenv.Ascii {
		return nil, nil
	}
	failure = func(s string) string {
		return out.String(s).Foreground(out.Color("#f87171")).String()
	}
	title = func(s string) string {
		return out.String(s).Bold().Foreground(out.Color("#38bdf8")).String()
	}
	return failure, title
}
