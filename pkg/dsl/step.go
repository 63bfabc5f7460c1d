package dsl

import (
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step    schema.Step
	fields  []*FieldBuilder
	builder *Builder
}

// Title sets the step heading.
func (s *StepBuilder) Title(title string) *StepBuilder {
	s.step.Title = title
	return s
}

// Describe sets the step description (Markdown).
func (s *StepBuilder) Describe(text string) *StepBuilder {
	s.step.Description = text
	return s
}

// Field adds a text field owned by this step.
func (s *StepBuilder) Field(name string) *FieldBuilder {
	fb := &FieldBuilder{field: schema.Field{Name: name, Kind: domain.KindText}, step: s}
	s.fields = append(s.fields, fb)
	return fb
}

// Done returns to the wizard builder.
func (s *StepBuilder) Done() *Builder {
	return s.builder
}

// FieldBuilder provides a fluent API for configuring a field.
type FieldBuilder struct {
	field schema.Field
	step  *StepBuilder
}

// Field adds the next field to the same step.
func (f *FieldBuilder) Field(name string) *FieldBuilder {
	return f.step.Field(name)
}

// Step starts (or returns) another step.
func (f *FieldBuilder) Step(id string) *StepBuilder {
	return f.step.builder.Step(id)
}

// Done returns to the wizard builder.
func (f *FieldBuilder) Done() *Builder {
	return f.step.builder
}

// Kind sets the input kind.
func (f *FieldBuilder) Kind(kind domain.FieldKind) *FieldBuilder {
	f.field.Kind = kind
	return f
}

// Label sets the display label.
func (f *FieldBuilder) Label(label string) *FieldBuilder {
	f.field.Label = label
	return f
}

// Help sets the hint shown under the field.
func (f *FieldBuilder) Help(text string) *FieldBuilder {
	f.field.Help = text
	return f
}

// Required marks the field as required.
func (f *FieldBuilder) Required() *FieldBuilder {
	f.field.Required = true
	return f
}

// Optional leaves the field out of the payload while empty.
func (f *FieldBuilder) Optional() *FieldBuilder {
	f.field.Optional = true
	return f
}

// Sensitive keeps the field out of persisted state.
func (f *FieldBuilder) Sensitive() *FieldBuilder {
	f.field.Sensitive = true
	return f
}

// MinLength sets the minimum number of characters.
func (f *FieldBuilder) MinLength(n int) *FieldBuilder {
	f.field.MinLength = n
	return f
}

// Pattern sets a regular expression the value must match.
func (f *FieldBuilder) Pattern(re string) *FieldBuilder {
	f.field.Pattern = re
	return f
}

// Matches requires the value to equal another field.
func (f *FieldBuilder) Matches(other string) *FieldBuilder {
	f.field.MatchField = other
	return f
}

// MinItems sets the minimum number of selected or listed items.
func (f *FieldBuilder) MinItems(n int) *FieldBuilder {
	f.field.MinItems = n
	return f
}

// MustBeTrue requires a boolean to be checked.
func (f *FieldBuilder) MustBeTrue() *FieldBuilder {
	f.field.MustBeTrue = true
	return f
}

// Delimiter sets the list separator.
func (f *FieldBuilder) Delimiter(sep string) *FieldBuilder {
	f.field.Delimiter = sep
	return f
}

// Numeric parses the text as "int" or "float" on submit.
func (f *FieldBuilder) Numeric(kind string) *FieldBuilder {
	f.field.Numeric = kind
	return f
}

// Options sets the allowed choices.
func (f *FieldBuilder) Options(options ...string) *FieldBuilder {
	f.field.Options = options
	return f
}

// Default sets the initial value.
func (f *FieldBuilder) Default(v any) *FieldBuilder {
	f.field.Default = v
	return f
}

// As renames the field in the payload.
func (f *FieldBuilder) As(key string) *FieldBuilder {
	f.field.PayloadKey = key
	return f
}
