package domain

import (
	"fmt"
	"reflect"
	"strings"
)

// Value is the current content of a single wizard field.
// Supported shapes: string, bool, []string and map[string]any (time ranges).
type Value = any

// IsEmpty reports whether v is the "nothing entered" value for its shape.
// Strings are trimmed, slices and maps must have at least one non-empty entry.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		for _, inner := range val {
			if !IsEmpty(inner) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Normalize converts values decoded from JSON/YAML into the canonical shapes
// used by the engine ([]any of strings -> []string, nested maps copied).
func Normalize(v Value) Value {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = Normalize(inner)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = inner
		}
		return out
	default:
		return v
	}
}

// CloneValue returns a deep copy so callers never share slices or maps.
func CloneValue(v Value) Value {
	return Normalize(v)
}

// Equal compares two field values after normalization.
func Equal(a, b Value) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// AsString renders a value for display and string comparisons.
func AsString(v Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}
