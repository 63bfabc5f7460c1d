package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
)

func validDefinition() *Definition {
	return &Definition{
		ID: "intake",
		Fields: []Field{
			{Name: "email", Kind: domain.KindEmail, Required: true},
			{Name: "password", Kind: domain.KindPassword, Required: true, MinLength: 8},
			{Name: "confirm", Kind: domain.KindPassword, Required: true, MatchField: "password"},
			{Name: "injuries", Kind: domain.KindChoice, Options: []string{"yes", "no"}},
			{Name: "injuryDetails", Kind: domain.KindText},
			{Name: "agree", Kind: domain.KindBoolean, MustBeTrue: true},
		},
		Steps: []Step{
			{ID: "account", Fields: []string{"email", "password", "confirm"}},
			{ID: "health", Fields: []string{"injuries", "injuryDetails"}},
			{ID: "confirm", Fields: []string{"agree"}},
		},
		Rules: []Rule{
			{Controller: "injuries", Trigger: "yes", Dependent: "injuryDetails"},
		},
	}
}

func assertIssue(t *testing.T, err error, fragment string) {
	t.Helper()
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("Validate() error = %v, want ErrInvalidDefinition", err)
	}
	for _, issue := range Issues(err) {
		if strings.Contains(issue.String(), fragment) {
			return
		}
	}
	t.Errorf("no issue containing %q in %v", fragment, err)
}

func TestValidate_Success(t *testing.T) {
	if err := validDefinition().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_FieldOwnedTwice(t *testing.T) {
	def := validDefinition()
	def.Steps[1].Fields = append(def.Steps[1].Fields, "email")

	assertIssue(t, def.Validate(), `field "email" already owned by step "account"`)
}

func TestValidate_FieldNotOwned(t *testing.T) {
	def := validDefinition()
	def.Steps[2].Fields = nil

	assertIssue(t, def.Validate(), "fields[agree]: not owned by any step")
}

func TestValidate_UndeclaredStepField(t *testing.T) {
	def := validDefinition()
	def.Steps[0].Fields = append(def.Steps[0].Fields, "nickname")

	assertIssue(t, def.Validate(), `undeclared field "nickname"`)
}

func TestValidate_SingleParent(t *testing.T) {
	def := validDefinition()
	def.Rules = append(def.Rules, Rule{Controller: "agree", Trigger: "true", Dependent: "injuryDetails"})

	assertIssue(t, def.Validate(), `already controlled by "injuries"`)
}

func TestValidate_RuleCycle(t *testing.T) {
	def := validDefinition()
	def.Rules = append(def.Rules, Rule{Controller: "injuryDetails", Trigger: "x", Dependent: "injuries"})

	assertIssue(t, def.Validate(), "conditional cycle")
}

func TestValidate_SelfControl(t *testing.T) {
	def := validDefinition()
	def.Rules[0].Controller = "injuryDetails"

	assertIssue(t, def.Validate(), "cannot control itself")
}

func TestValidate_FieldOptions(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Definition)
		fragment string
	}{
		{"bad pattern", func(d *Definition) { d.Fields[0].Pattern = "([" }, "does not compile"},
		{"unknown kind", func(d *Definition) { d.Fields[4].Kind = "slider" }, `unknown kind "slider"`},
		{"numeric on boolean", func(d *Definition) { d.Fields[5].Numeric = NumericInt }, "can be numeric"},
		{"min items on text", func(d *Definition) { d.Fields[4].MinItems = 1 }, "have items"},
		{"must be true on text", func(d *Definition) { d.Fields[4].MustBeTrue = true }, "forced true"},
		{"match undeclared", func(d *Definition) { d.Fields[2].MatchField = "pwd" }, `undeclared field "pwd"`},
		{"bad default", func(d *Definition) { d.Fields[5].Default = "perhaps" }, "fields[agree].default"},
		{"no steps", func(d *Definition) { d.Steps = nil }, "at least one step"},
		{"duplicate field", func(d *Definition) { d.Fields = append(d.Fields, Field{Name: "email", Kind: domain.KindText}) }, "declared more than once"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(def)
			assertIssue(t, def.Validate(), tt.fragment)
		})
	}
}

func TestValidate_Checks(t *testing.T) {
	def := validDefinition()
	def.Checks = []Check{
		{Name: "ok", Step: "account", Field: "email", Expr: `fields.email.endsWith("@club.org")`},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	def.Checks = []Check{
		{Name: "broken", Step: "account", Field: "email", Expr: `fields.email +`},
		{Name: "nostep", Step: "billing", Field: "email", Expr: `true`},
		{Name: "string", Step: "account", Field: "email", Expr: `"x"`},
	}
	err := def.Validate()
	assertIssue(t, err, "checks[broken].expr")
	assertIssue(t, err, `unknown step "billing"`)
	assertIssue(t, err, "must return bool")
}

func TestDefaults(t *testing.T) {
	def := validDefinition()
	def.Fields[3].Default = "no"

	store := def.Defaults()

	if store.Len() != len(def.Fields) {
		t.Fatalf("Defaults() has %d keys, want %d", store.Len(), len(def.Fields))
	}
	if got := store.Value("injuries"); got != "no" {
		t.Errorf("injuries = %v, want declared default", got)
	}
	if got := store.Value("agree"); got != false {
		t.Errorf("agree = %v, want false", got)
	}
	if got := store.Value("email"); got != "" {
		t.Errorf("email = %v, want empty string", got)
	}
}

func TestLookups(t *testing.T) {
	def := validDefinition()

	if got := def.StepOf("injuryDetails"); got != 1 {
		t.Errorf("StepOf() = %d, want 1", got)
	}
	if got := def.StepOf("nickname"); got != -1 {
		t.Errorf("StepOf(unknown) = %d, want -1", got)
	}
	r, ok := def.RuleFor("injuryDetails")
	if !ok || r.Controller != "injuries" || r.EffectOrDefault() != EffectBoth {
		t.Errorf("RuleFor() = %+v, %v", r, ok)
	}
	if _, ok := def.RuleFor("email"); ok {
		t.Error("RuleFor(email) should not exist")
	}
	if def.LastStep() != 2 {
		t.Errorf("LastStep() = %d", def.LastStep())
	}
}
