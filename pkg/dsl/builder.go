package dsl

import (
	"fmt"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Builder manages the wizard construction.
type Builder struct {
	def   schema.Definition
	steps []*StepBuilder
}

// New creates a new wizard builder.
func New(id string) *Builder {
	return &Builder{def: schema.Definition{ID: id}}
}

// Title sets the wizard title.
func (b *Builder) Title(title string) *Builder {
	b.def.Title = title
	return b
}

// Describe sets the wizard description.
func (b *Builder) Describe(text string) *Builder {
	b.def.Description = text
	return b
}

// Step appends a new step. Steps run in the order they are added.
// If the step already exists, it returns the existing builder.
func (b *Builder) Step(id string) *StepBuilder {
	for _, sb := range b.steps {
		if sb.step.ID == id {
			return sb
		}
	}
	sb := &StepBuilder{step: schema.Step{ID: id}, builder: b}
	b.steps = append(b.steps, sb)
	return sb
}

// When starts a conditional rule on a controlling field.
func (b *Builder) When(controller, trigger string) *RuleBuilder {
	return &RuleBuilder{builder: b, controller: controller, trigger: trigger}
}

// Check adds a CEL check to a step. The failure is reported on field.
func (b *Builder) Check(step, field, expr string, reason domain.Reason, message string) *Builder {
	b.def.Checks = append(b.def.Checks, schema.Check{
		Name:    fmt.Sprintf("%s.%s.%d", step, field, len(b.def.Checks)),
		Step:    step,
		Field:   field,
		Expr:    expr,
		Reason:  reason,
		Message: message,
	})
	return b
}

// Build assembles and validates the definition.
func (b *Builder) Build() (*schema.Definition, error) {
	def := b.def
	def.Fields = nil
	def.Steps = make([]schema.Step, 0, len(b.steps))
	for _, sb := range b.steps {
		step := sb.step
		step.Fields = nil
		for _, fb := range sb.fields {
			def.Fields = append(def.Fields, fb.field)
			step.Fields = append(step.Fields, fb.field.Name)
		}
		def.Steps = append(def.Steps, step)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("failed to build wizard %s: %w", def.ID, err)
	}
	return &def, nil
}

// MustBuild is Build for definitions known at compile time.
func (b *Builder) MustBuild() *schema.Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// RuleBuilder completes a conditional rule.
type RuleBuilder struct {
	builder    *Builder
	controller string
	trigger    string
}

func (r *RuleBuilder) add(dependent string, effect schema.Effect) *Builder {
	r.builder.def.Rules = append(r.builder.def.Rules, schema.Rule{
		Controller: r.controller,
		Trigger:    r.trigger,
		Dependent:  dependent,
		Effect:     effect,
	})
	return r.builder
}

// Reveal makes dependent visible and required only while triggered.
func (r *RuleBuilder) Reveal(dependent string) *Builder {
	return r.add(dependent, schema.EffectBoth)
}

// Require makes dependent required only while triggered; it stays visible.
func (r *RuleBuilder) Require(dependent string) *Builder {
	return r.add(dependent, schema.EffectRequire)
}

// Show makes dependent visible only while triggered.
func (r *RuleBuilder) Show(dependent string) *Builder {
	return r.add(dependent, schema.EffectShow)
}
