package schema

import (
	"github.com/clubdesk/formflow/pkg/domain"
)

// Effect selects what a conditional rule controls on its dependent field.
type Effect string

const (
	EffectRequire Effect = "require" // dependent required only while triggered
	EffectShow    Effect = "show"    // dependent visible only while triggered
	EffectBoth    Effect = "both"    // default
)

// NumericInt and NumericFloat select how numeric text is parsed on submit.
const (
	NumericInt   = "int"
	NumericFloat = "float"
)

// Definition is a complete wizard: its fields, the ordered steps that own
// them, conditional rules and extra checks.
type Definition struct {
	ID          string  `json:"id" yaml:"id" mapstructure:"id"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Fields      []Field `json:"fields" yaml:"fields" mapstructure:"fields"`
	Steps       []Step  `json:"steps" yaml:"steps" mapstructure:"steps"`
	Rules       []Rule  `json:"rules,omitempty" yaml:"rules,omitempty" mapstructure:"rules"`
	Checks      []Check `json:"checks,omitempty" yaml:"checks,omitempty" mapstructure:"checks"`
}

// Field declares a single named input.
type Field struct {
	Name  string           `json:"name" yaml:"name" mapstructure:"name"`
	Label string           `json:"label,omitempty" yaml:"label,omitempty" mapstructure:"label"`
	Help  string           `json:"help,omitempty" yaml:"help,omitempty" mapstructure:"help"`
	Kind  domain.FieldKind `json:"kind" yaml:"kind" mapstructure:"kind"`

	Required   bool   `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
	MinLength  int    `json:"min_length,omitempty" yaml:"min_length,omitempty" mapstructure:"min_length"`
	Pattern    string `json:"pattern,omitempty" yaml:"pattern,omitempty" mapstructure:"pattern"`
	MatchField string `json:"match_field,omitempty" yaml:"match_field,omitempty" mapstructure:"match_field"`
	MinItems   int    `json:"min_items,omitempty" yaml:"min_items,omitempty" mapstructure:"min_items"`
	MustBeTrue bool   `json:"must_be_true,omitempty" yaml:"must_be_true,omitempty" mapstructure:"must_be_true"`

	// Delimiter splits list fields on submit. Defaults to ",".
	Delimiter string `json:"delimiter,omitempty" yaml:"delimiter,omitempty" mapstructure:"delimiter"`
	// Numeric is "int" or "float" for text that must be sent as a number.
	Numeric string `json:"numeric,omitempty" yaml:"numeric,omitempty" mapstructure:"numeric"`
	// Optional fields are left out of the payload while empty.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty" mapstructure:"optional"`
	// Sensitive fields are never persisted.
	Sensitive bool `json:"sensitive,omitempty" yaml:"sensitive,omitempty" mapstructure:"sensitive"`

	Options    []string `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
	Default    any      `json:"default,omitempty" yaml:"default,omitempty" mapstructure:"default"`
	PayloadKey string   `json:"payload_key,omitempty" yaml:"payload_key,omitempty" mapstructure:"payload_key"`
}

// Step is an ordered group of fields validated together.
type Step struct {
	ID          string   `json:"id" yaml:"id" mapstructure:"id"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Fields      []string `json:"fields" yaml:"fields" mapstructure:"fields"`
}

// Rule makes Dependent conditional on Controller currently equalling Trigger.
type Rule struct {
	Controller string `json:"controller" yaml:"controller" mapstructure:"controller"`
	Trigger    string `json:"trigger" yaml:"trigger" mapstructure:"trigger"`
	Dependent  string `json:"dependent" yaml:"dependent" mapstructure:"dependent"`
	Effect     Effect `json:"effect,omitempty" yaml:"effect,omitempty" mapstructure:"effect"`
}

// Check is a CEL expression over the field store that must hold for the step
// to pass. The expression sees the values as the map variable `fields`.
type Check struct {
	Name    string        `json:"name" yaml:"name" mapstructure:"name"`
	Step    string        `json:"step" yaml:"step" mapstructure:"step"`
	Field   string        `json:"field" yaml:"field" mapstructure:"field"`
	Expr    string        `json:"expr" yaml:"expr" mapstructure:"expr"`
	Reason  domain.Reason `json:"reason,omitempty" yaml:"reason,omitempty" mapstructure:"reason"`
	Message string        `json:"message,omitempty" yaml:"message,omitempty" mapstructure:"message"`
}

// EffectOrDefault resolves an empty effect to EffectBoth.
func (r Rule) EffectOrDefault() Effect {
	if r.Effect == "" {
		return EffectBoth
	}
	return r.Effect
}

// ReasonOrDefault resolves an empty reason to cross_field_mismatch.
func (c Check) ReasonOrDefault() domain.Reason {
	if c.Reason == "" {
		return domain.ReasonCrossFieldMismatch
	}
	return c.Reason
}

// DelimiterOrDefault returns the split separator for list fields.
func (f Field) DelimiterOrDefault() string {
	if f.Delimiter == "" {
		return ","
	}
	return f.Delimiter
}

// IsNumeric reports whether the value must parse as a number.
func (f Field) IsNumeric() bool {
	return f.Numeric != "" || f.Kind == domain.KindNumber
}

// IsList reports whether the value is delimited text split on submit.
func (f Field) IsList() bool {
	return f.Kind == domain.KindList || (f.Delimiter != "" && f.Kind.Textual())
}

// DisplayLabel falls back to the field name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Field looks up a declared field.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// StepOf returns the index of the step owning field, or -1.
func (d *Definition) StepOf(field string) int {
	for i, s := range d.Steps {
		for _, name := range s.Fields {
			if name == field {
				return i
			}
		}
	}
	return -1
}

// StepIndex returns the index of the step with the given ID, or -1.
func (d *Definition) StepIndex(id string) int {
	for i, s := range d.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// RuleFor returns the single rule controlling dependent, if any.
func (d *Definition) RuleFor(dependent string) (Rule, bool) {
	for _, r := range d.Rules {
		if r.Dependent == dependent {
			return r, true
		}
	}
	return Rule{}, false
}

// ChecksFor returns the checks attached to a step.
func (d *Definition) ChecksFor(step int) []Check {
	if step < 0 || step >= len(d.Steps) {
		return nil
	}
	id := d.Steps[step].ID
	var out []Check
	for _, c := range d.Checks {
		if c.Step == id {
			out = append(out, c)
		}
	}
	return out
}

// LastStep returns the index of the final step.
func (d *Definition) LastStep() int {
	return len(d.Steps) - 1
}

// FieldNames lists fields in declaration order.
func (d *Definition) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Defaults builds the initial field store: every declared field at its
// declared default or the zero value of its kind.
func (d *Definition) Defaults() domain.FieldStore {
	values := make(map[string]domain.Value, len(d.Fields))
	for _, f := range d.Fields {
		if f.Default != nil {
			if v, err := Coerce(f.Kind, f.Default); err == nil {
				values[f.Name] = v
				continue
			}
		}
		values[f.Name] = f.Kind.Zero()
	}
	return domain.NewFieldStore(values)
}

// Sensitive lists the fields that must never be persisted.
func (d *Definition) Sensitive() []string {
	var out []string
	for _, f := range d.Fields {
		if f.Sensitive {
			out = append(out, f.Name)
		}
	}
	return out
}

// Redact returns a copy of state with every sensitive value reset, for
// responses that leave the process.
func (d *Definition) Redact(state *domain.State) *domain.State {
	out := state.Snapshot()
	for _, f := range d.Fields {
		if !f.Sensitive || domain.IsEmpty(out.Fields.Value(f.Name)) {
			continue
		}
		if fields, err := out.Fields.Set(f.Name, f.Kind.Zero()); err == nil {
			out.Fields = fields
		}
	}
	return out
}
