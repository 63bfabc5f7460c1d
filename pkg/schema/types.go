package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/clubdesk/formflow/pkg/domain"
)

// Type defines the contract for field value validation.
// Implementations determine which Go shapes a field kind accepts.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "[string]").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// --- Built-in Type Implementations ---

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		if err := t.elemType.Validate(rv.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// RangeType validates {from, to} objects of strings.
type RangeType struct{}

func (t *RangeType) Name() string { return "range" }

func (t *RangeType) Validate(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object with from/to, got %T", value)
	}
	for key, v := range m {
		if key != "from" && key != "to" {
			return fmt.Errorf("unexpected key %q in range", key)
		}
		if _, ok := v.(string); !ok {
			return fmt.Errorf("range %s: expected string, got %T", key, v)
		}
	}
	return nil
}

// OneOfType restricts an inner type to a fixed option set.
type OneOfType struct {
	inner   Type
	options []string
}

func (t *OneOfType) Name() string { return t.inner.Name() }

func (t *OneOfType) Validate(value any) error {
	if err := t.inner.Validate(value); err != nil {
		return err
	}
	check := func(s string) error {
		if s == "" {
			return nil
		}
		for _, o := range t.options {
			if o == s {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of %s", s, strings.Join(t.options, ", "))
	}
	switch v := value.(type) {
	case string:
		return check(v)
	case []string:
		for _, s := range v {
			if err := check(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- Factory Functions ---

// String creates a string type validator.
func String() Type { return &StringType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type { return &SliceType{elemType: elemType} }

// Range creates a time range validator.
func Range() Type { return &RangeType{} }

// OneOf restricts inner to the given options. Empty values are accepted.
func OneOf(inner Type, options ...string) Type {
	return &OneOfType{inner: inner, options: options}
}

// TypeOf returns the value type accepted by a field kind.
func TypeOf(kind domain.FieldKind) (Type, error) {
	switch kind {
	case domain.KindText, domain.KindPassword, domain.KindEmail, domain.KindNumber,
		domain.KindChoice, domain.KindList:
		return String(), nil
	case domain.KindBoolean:
		return Bool(), nil
	case domain.KindMultiChoice:
		return Slice(String()), nil
	case domain.KindTimeRange:
		return Range(), nil
	default:
		return nil, fmt.Errorf("unsupported kind: %q", kind)
	}
}

// TypeOfField is TypeOf narrowed by the field's option list.
func TypeOfField(f Field) (Type, error) {
	t, err := TypeOf(f.Kind)
	if err != nil {
		return nil, err
	}
	if len(f.Options) > 0 && (f.Kind == domain.KindChoice || f.Kind == domain.KindMultiChoice) {
		return OneOf(t, f.Options...), nil
	}
	return t, nil
}

// Coerce converts loosely typed input (JSON numbers, "yes"/"no" text, []any)
// into the canonical shape of kind and validates it.
func Coerce(kind domain.FieldKind, value any) (domain.Value, error) {
	t, err := TypeOf(kind)
	if err != nil {
		return nil, err
	}

	v := domain.Normalize(value)
	switch kind {
	case domain.KindBoolean:
		if s, ok := v.(string); ok {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "true", "yes", "y", "1", "on":
				v = true
			case "false", "no", "n", "0", "off", "":
				v = false
			}
		}
	case domain.KindMultiChoice:
		if s, ok := v.(string); ok {
			v = splitNonEmpty(s, ",")
		}
	case domain.KindTimeRange:
		if m, ok := v.(map[string]any); ok {
			out := map[string]any{"from": "", "to": ""}
			for k, inner := range m {
				out[k] = scalarString(inner)
			}
			v = out
		}
	case domain.KindNumber:
		v = trimText(scalarString(v))
	default:
		v = scalarString(v)
	}

	if err := t.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// CoerceField is Coerce plus the field's own normalization: numeric text is
// trimmed so validation, checks and the payload all read the same string.
func CoerceField(f Field, value any) (domain.Value, error) {
	v, err := Coerce(f.Kind, value)
	if err != nil {
		return nil, err
	}
	if f.IsNumeric() {
		v = trimText(v)
	}
	return v, nil
}

func trimText(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

func scalarString(v any) any {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case nil:
		return ""
	default:
		return v
	}
}

func splitNonEmpty(s, sep string) []string {
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
