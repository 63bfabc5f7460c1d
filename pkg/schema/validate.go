package schema

import (
	"fmt"
	"regexp"

	"github.com/clubdesk/formflow/pkg/domain"
)

// Validate checks the structural integrity of the definition.
// Returns an *IntegrityError listing every problem found.
func (d *Definition) Validate() error {
	v := &integrity{def: d}
	v.checkHeader()
	declared := v.checkFields()
	v.checkSteps(declared)
	v.checkRules(declared)
	v.checkChecks(declared)

	if len(v.issues) > 0 {
		return &IntegrityError{WizardID: d.ID, Issues: v.issues}
	}
	return nil
}

type integrity struct {
	def    *Definition
	issues []Issue
}

func (v *integrity) add(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func (v *integrity) checkHeader() {
	if v.def.ID == "" {
		v.add("id", "must not be empty")
	}
	if len(v.def.Steps) == 0 {
		v.add("steps", "at least one step is required")
	}
}

func (v *integrity) checkFields() map[string]Field {
	declared := make(map[string]Field, len(v.def.Fields))
	for i, f := range v.def.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if f.Name == "" {
			v.add(path+".name", "must not be empty")
			continue
		}
		path = fmt.Sprintf("fields[%s]", f.Name)
		if _, dup := declared[f.Name]; dup {
			v.add(path, "declared more than once")
			continue
		}
		declared[f.Name] = f

		if !f.Kind.Known() {
			v.add(path+".kind", "unknown kind %q", f.Kind)
			continue
		}
		if f.Pattern != "" {
			if _, err := regexp.Compile(f.Pattern); err != nil {
				v.add(path+".pattern", "does not compile: %v", err)
			}
		}
		if f.Numeric != "" && f.Numeric != NumericInt && f.Numeric != NumericFloat {
			v.add(path+".numeric", "must be %q or %q", NumericInt, NumericFloat)
		}
		if f.IsNumeric() && f.Kind != domain.KindText && f.Kind != domain.KindNumber {
			v.add(path+".numeric", "only text and number fields can be numeric")
		}
		if f.MinItems > 0 && f.Kind != domain.KindMultiChoice && f.Kind != domain.KindList {
			v.add(path+".min_items", "only multichoice and list fields have items")
		}
		if f.MustBeTrue && f.Kind != domain.KindBoolean {
			v.add(path+".must_be_true", "only boolean fields can be forced true")
		}
		if f.MinLength < 0 || f.MinItems < 0 {
			v.add(path, "minimums must not be negative")
		}
		if f.Default != nil {
			if _, err := Coerce(f.Kind, f.Default); err != nil {
				v.add(path+".default", "%v", err)
			}
		}
	}

	for name, f := range declared {
		if f.MatchField == "" {
			continue
		}
		if f.MatchField == name {
			v.add(fmt.Sprintf("fields[%s].match_field", name), "field cannot match itself")
		} else if _, ok := declared[f.MatchField]; !ok {
			v.add(fmt.Sprintf("fields[%s].match_field", name), "references undeclared field %q", f.MatchField)
		}
	}
	return declared
}

func (v *integrity) checkSteps(declared map[string]Field) {
	owner := make(map[string]string, len(declared))
	stepIDs := make(map[string]bool, len(v.def.Steps))

	for i, s := range v.def.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if s.ID == "" {
			v.add(path+".id", "must not be empty")
		} else if stepIDs[s.ID] {
			v.add(path+".id", "duplicate step id %q", s.ID)
		}
		stepIDs[s.ID] = true

		for _, name := range s.Fields {
			if _, ok := declared[name]; !ok {
				v.add(path+".fields", "references undeclared field %q", name)
				continue
			}
			if prev, taken := owner[name]; taken {
				v.add(path+".fields", "field %q already owned by step %q", name, prev)
				continue
			}
			owner[name] = s.ID
		}
	}

	for _, f := range v.def.Fields {
		if _, ok := owner[f.Name]; !ok && f.Name != "" {
			v.add(fmt.Sprintf("fields[%s]", f.Name), "not owned by any step")
		}
	}
}

func (v *integrity) checkRules(declared map[string]Field) {
	parent := make(map[string]string, len(v.def.Rules))

	for i, r := range v.def.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if _, ok := declared[r.Controller]; !ok {
			v.add(path+".controller", "references undeclared field %q", r.Controller)
		}
		if _, ok := declared[r.Dependent]; !ok {
			v.add(path+".dependent", "references undeclared field %q", r.Dependent)
		}
		if r.Controller == r.Dependent {
			v.add(path, "field %q cannot control itself", r.Dependent)
		}
		if r.Trigger == "" {
			v.add(path+".trigger", "must not be empty")
		}
		switch r.EffectOrDefault() {
		case EffectRequire, EffectShow, EffectBoth:
		default:
			v.add(path+".effect", "unknown effect %q", r.Effect)
		}
		if prev, dup := parent[r.Dependent]; dup {
			v.add(path+".dependent", "field %q already controlled by %q", r.Dependent, prev)
			continue
		}
		parent[r.Dependent] = r.Controller
	}

	// Single parent means each chain is a linked list; walk it to find cycles.
	for _, r := range v.def.Rules {
		start := r.Dependent
		seen := map[string]bool{start: true}
		for cur := parent[start]; cur != ""; cur = parent[cur] {
			if seen[cur] {
				v.add("rules", "conditional cycle through field %q", start)
				break
			}
			seen[cur] = true
		}
	}
}

func (v *integrity) checkChecks(declared map[string]Field) {
	if len(v.def.Checks) == 0 {
		return
	}
	env, err := NewCheckEnv()
	if err != nil {
		v.add("checks", "%v", err)
		return
	}
	for i, c := range v.def.Checks {
		path := fmt.Sprintf("checks[%d]", i)
		if c.Name != "" {
			path = fmt.Sprintf("checks[%s]", c.Name)
		}
		if _, ok := declared[c.Field]; !ok {
			v.add(path+".field", "references undeclared field %q", c.Field)
		}
		if v.def.StepIndex(c.Step) < 0 {
			v.add(path+".step", "references unknown step %q", c.Step)
		}
		if !c.ReasonOrDefault().Valid() {
			v.add(path+".reason", "unknown reason %q", c.Reason)
		}
		if _, err := c.Compile(env); err != nil {
			v.add(path+".expr", "%v", err)
		}
	}
}
