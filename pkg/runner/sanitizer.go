package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is 4KB (conservative default).
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitizer enforces a size limit, valid UTF-8 and strips control characters
// from user input. The zero value uses DefaultMaxInputSize.
type Sanitizer struct {
	MaxSize int
}

func (s Sanitizer) limit() int {
	if s.MaxSize > 0 {
		return s.MaxSize
	}
	return DefaultMaxInputSize
}

// SanitizeInput cleans input with the default limit.
func SanitizeInput(input string) (string, error) {
	return Sanitizer{}.Sanitize(input)
}

// Sanitize cleans a single string. Oversized input is rejected, never truncated.
func (s Sanitizer) Sanitize(input string) (string, error) {
	limit := s.limit()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and carriage return survive; ESC, NUL, BEL and friends do not.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// SanitizeValue cleans every string inside a decoded JSON value
// (strings, lists and objects such as time ranges).
func (s Sanitizer) SanitizeValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return s.Sanitize(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			clean, err := s.SanitizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			clean, err := s.Sanitize(item)
			if err != nil {
				return nil, err
			}
			out[i] = clean
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			clean, err := s.SanitizeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = clean
		}
		return out, nil
	default:
		return v, nil
	}
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
