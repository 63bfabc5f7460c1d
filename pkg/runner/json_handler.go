package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/clubdesk/formflow/pkg/domain"
)

// JSONMessage is one line emitted by the JSONHandler.
type JSONMessage struct {
	Type    string            `json:"type"`
	Step    *domain.StepView  `json:"step,omitempty"`
	Field   *domain.FieldView `json:"field,omitempty"`
	Message string            `json:"message,omitempty"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// It emits a "step" line per step, an "input" line per field and reads one
// line per answer: a JSON string, a raw line, or any JSON value (re-encoded).
type JSONHandler struct {
	Reader    *bufio.Reader
	Writer    io.Writer
	Encoder   *json.Encoder
	Sanitizer Sanitizer
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, view domain.StepView) error {
	return h.Encoder.Encode(JSONMessage{Type: "step", Step: &view})
}

func (h *JSONHandler) Input(ctx context.Context, field domain.FieldView) (string, error) {
	if err := h.Encoder.Encode(JSONMessage{Type: "input", Field: &field}); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	} else {
		var raw any
		if json.Unmarshal([]byte(text), &raw) == nil {
			text = flatten(raw, field.Multiline)
		}
	}
	return h.Sanitizer.Sanitize(text)
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(JSONMessage{Type: "system", Message: msg})
}

// flatten turns JSON answers into the text form parseAnswer understands.
func flatten(v any, multiline bool) string {
	switch val := v.(type) {
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = domain.AsString(item)
		}
		if multiline {
			return strings.Join(parts, "\n")
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return domain.AsString(val["from"]) + "-" + domain.AsString(val["to"])
	default:
		return domain.AsString(val)
	}
}
