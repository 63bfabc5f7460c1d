package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/clubdesk/formflow/pkg/domain"
	"golang.org/x/term"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Reader    *bufio.Reader
	Writer    io.Writer
	Renderer  ContentRenderer
	Sanitizer Sanitizer

	// FailureStyle and TitleStyle decorate output lines when set.
	FailureStyle Styler
	TitleStyle   Styler

	// passwordFD is the terminal descriptor used for hidden input, or -1.
	passwordFD int

	inputChan chan inputResult
	requests  chan struct{}
	waiting   bool
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerStyles configures failure and title decoration.
func WithTextHandlerStyles(failure, title Styler) TextHandlerOption {
	return func(h *TextHandler) {
		h.FailureStyle = failure
		h.TitleStyle = title
	}
}

// WithTextHandlerMaxInput overrides the input size limit.
func WithTextHandlerMaxInput(size int) TextHandlerOption {
	return func(h *TextHandler) {
		h.Sanitizer = Sanitizer{MaxSize: size}
	}
}

// NewTextHandler creates a handler for standard text IO.
// Password fields are read without echo when r is a terminal.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader:     bufio.NewReader(r),
		Writer:     w,
		passwordFD: -1,
	}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		h.passwordFD = int(f.Fd())
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		h.requests = make(chan struct{})
		go h.pump()
	})
}

// pump reads one line per request so that hidden password reads never
// compete with a pending line read.
func (h *TextHandler) pump() {
	for range h.requests {
		text, err := h.Reader.ReadString('\n')
		if text != "" && err == io.EOF {
			err = nil
		}
		h.inputChan <- inputResult{text: text, err: err}
	}
}

func (h *TextHandler) readLine(ctx context.Context) (string, error) {
	h.initPump()
	if !h.waiting {
		select {
		case h.requests <- struct{}{}:
			h.waiting = true
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	select {
	case <-ctx.Done():
		// The read stays pending and is picked up by the next call.
		return "", ctx.Err()
	case res := <-h.inputChan:
		h.waiting = false
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimRight(res.text, "\r\n"), nil
	}
}

func (h *TextHandler) readPassword(ctx context.Context) (string, error) {
	done := make(chan inputResult, 1)
	go func() {
		b, err := term.ReadPassword(h.passwordFD)
		done <- inputResult{text: string(b), err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		fmt.Fprintln(h.Writer)
		return res.text, res.err
	}
}

func (h *TextHandler) style(s Styler, text string) string {
	if s == nil {
		return text
	}
	return s(text)
}

// Output prints the step header, its description and the latest failures.
func (h *TextHandler) Output(ctx context.Context, view domain.StepView) error {
	title := view.Title
	if title == "" {
		title = view.ID
	}
	fmt.Fprintf(h.Writer, "\n%s\n", h.style(h.TitleStyle, fmt.Sprintf("[%d/%d] %s", view.Index+1, view.Total, title)))

	if view.Description != "" {
		output := view.Description
		if h.Renderer != nil {
			if rendered, err := h.Renderer(output); err == nil {
				output = rendered
			}
		}
		fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	}

	for _, f := range view.Visible() {
		for _, failure := range f.Failures {
			fmt.Fprintln(h.Writer, h.style(h.FailureStyle, "  ✗ "+failure.Message))
		}
	}
	if view.SubmissionError != "" {
		fmt.Fprintln(h.Writer, h.style(h.FailureStyle, "  Submission failed: "+view.SubmissionError))
	}
	return nil
}

// Input prompts for one field. An empty answer keeps the current value.
func (h *TextHandler) Input(ctx context.Context, field domain.FieldView) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(h.Writer, prompt(field))

		var (
			text string
			err  error
		)
		switch {
		case field.Kind == domain.KindPassword && h.passwordFD >= 0:
			text, err = h.readPassword(ctx)
		case field.Multiline:
			text, err = h.readLines(ctx)
		default:
			text, err = h.readLine(ctx)
		}
		if err != nil {
			return "", err
		}

		clean, err := h.Sanitizer.Sanitize(strings.TrimSpace(text))
		if err != nil {
			fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
			continue
		}
		return clean, nil
	}
}

// readLines collects lines until an empty one. A leading command is returned alone.
func (h *TextHandler) readLines(ctx context.Context) (string, error) {
	var lines []string
	for {
		line, err := h.readLine(ctx)
		if err != nil {
			if err == io.EOF && len(lines) > 0 {
				break
			}
			return "", err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			break
		}
		if len(lines) == 0 && strings.HasPrefix(trimmed, ":") {
			return trimmed, nil
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// SystemOutput prints a meta-message.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	fmt.Fprintf(h.Writer, "[System] %s\n", msg)
	return nil
}

func prompt(f domain.FieldView) string {
	var b strings.Builder
	b.WriteString(f.Label)
	if f.Required {
		b.WriteString(" *")
	}
	switch {
	case len(f.Options) > 0:
		fmt.Fprintf(&b, " (%s)", strings.Join(f.Options, "/"))
	case f.Kind == domain.KindBoolean:
		b.WriteString(" (yes/no)")
	case f.Kind == domain.KindTimeRange:
		b.WriteString(" (HH:MM-HH:MM)")
	case f.Multiline:
		b.WriteString(" (one per line, empty line to finish)")
	}
	if current := display(f); current != "" {
		fmt.Fprintf(&b, " [%s]", current)
	}
	if f.Help != "" {
		fmt.Fprintf(&b, "\n  %s", f.Help)
	}
	if f.Multiline {
		b.WriteString("\n")
	} else {
		b.WriteString(": ")
	}
	return b.String()
}

func display(f domain.FieldView) string {
	if f.Kind == domain.KindPassword || domain.IsEmpty(f.Value) {
		return ""
	}
	if r, ok := f.Value.(map[string]any); ok {
		return fmt.Sprintf("%v-%v", r["from"], r["to"])
	}
	return strings.ReplaceAll(domain.AsString(f.Value), "\n", " / ")
}
