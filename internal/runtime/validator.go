package runtime

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/google/cel-go/cel"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type compiledCheck struct {
	schema.Check
	prg cel.Program
}

// Validator maps (step, store) to the failures blocking that step.
// Validate is pure: the same store always yields the same failures.
type Validator struct {
	def      *schema.Definition
	resolver *Resolver
	patterns map[string]*regexp.Regexp
	checks   map[int][]compiledCheck
}

// NewValidator precompiles patterns and CEL checks of def.
func NewValidator(def *schema.Definition, resolver *Resolver) (*Validator, error) {
	v := &Validator{
		def:      def,
		resolver: resolver,
		patterns: make(map[string]*regexp.Regexp),
		checks:   make(map[int][]compiledCheck),
	}

	for _, f := range def.Fields {
		if f.Pattern == "" {
			continue
		}
		re, err := regexp.Compile(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		v.patterns[f.Name] = re
	}

	if len(def.Checks) > 0 {
		env, err := schema.NewCheckEnv()
		if err != nil {
			return nil, err
		}
		for i := range def.Steps {
			for _, c := range def.ChecksFor(i) {
				prg, err := c.Compile(env)
				if err != nil {
					return nil, fmt.Errorf("check %s: %w", c.Name, err)
				}
				v.checks[i] = append(v.checks[i], compiledCheck{Check: c, prg: prg})
			}
		}
	}
	return v, nil
}

// Validate returns the failures for the fields owned by step. Hidden fields
// never fail. An out of range step yields no failures.
func (v *Validator) Validate(step int, store domain.FieldStore) domain.Failures {
	if step < 0 || step >= len(v.def.Steps) {
		return nil
	}

	var failures domain.Failures
	for _, name := range v.def.Steps[step].Fields {
		f, ok := v.def.Field(name)
		if !ok || !v.resolver.IsVisible(name, store) {
			continue
		}
		failures = append(failures, v.validateField(f, store)...)
	}

	for _, c := range v.checks[step] {
		if len(failures.For(c.Field)) > 0 || !v.resolver.IsVisible(c.Field, store) {
			continue
		}
		if !v.evalCheck(c, store) {
			failures = append(failures, domain.Failure{
				Field:   c.Field,
				Reason:  c.ReasonOrDefault(),
				Message: c.Message,
			})
		}
	}

	v.sortFailures(step, failures)
	return failures
}

func (v *Validator) validateField(f schema.Field, store domain.FieldStore) domain.Failures {
	value := store.Value(f.Name)
	label := f.DisplayLabel()
	fail := func(reason domain.Reason, format string, args ...any) domain.Failure {
		return domain.Failure{Field: f.Name, Reason: reason, Message: fmt.Sprintf(format, args...)}
	}

	if domain.IsEmpty(value) {
		switch {
		case f.MustBeTrue:
			return domain.Failures{fail(domain.ReasonMissingRequired, "%s must be accepted", label)}
		case v.resolver.IsRequired(f.Name, store):
			return domain.Failures{fail(domain.ReasonMissingRequired, "%s is required", label)}
		case f.MinItems > 0:
			return domain.Failures{fail(domain.ReasonMissingRequired, "Select at least %d for %s", f.MinItems, label)}
		}
		return nil
	}

	var out domain.Failures
	text, isText := value.(string)

	if isText && f.MinLength > 0 && utf8.RuneCountInString(text) < f.MinLength {
		out = append(out, fail(domain.ReasonLengthTooShort, "%s must be at least %d characters", label, f.MinLength))
	}
	if re, ok := v.patterns[f.Name]; ok && isText && !re.MatchString(text) {
		out = append(out, fail(domain.ReasonPatternMismatch, "%s has an invalid format", label))
	}
	if isText && f.Kind == domain.KindEmail && !emailPattern.MatchString(strings.TrimSpace(text)) {
		out = append(out, fail(domain.ReasonPatternMismatch, "%s is not a valid e-mail address", label))
	}
	if isText && f.IsNumeric() && !isNumber(text, f.Numeric) {
		out = append(out, fail(domain.ReasonPatternMismatch, "%s must be a number", label))
	}
	if isText && f.Kind == domain.KindChoice && len(f.Options) > 0 && !contains(f.Options, text) {
		out = append(out, fail(domain.ReasonPatternMismatch, "%s must be one of %s", label, strings.Join(f.Options, ", ")))
	}
	if f.Kind == domain.KindTimeRange && !validRange(value) {
		out = append(out, fail(domain.ReasonPatternMismatch, "%s needs a start before its end", label))
	}
	if f.MinItems > 0 && countItems(f, value) < f.MinItems {
		out = append(out, fail(domain.ReasonMissingRequired, "Select at least %d for %s", f.MinItems, label))
	}
	if f.MatchField != "" && !domain.Equal(value, store.Value(f.MatchField)) {
		other := f.MatchField
		if target, ok := v.def.Field(f.MatchField); ok {
			other = target.DisplayLabel()
		}
		out = append(out, fail(domain.ReasonCrossFieldMismatch, "%s does not match %s", label, other))
	}
	return out
}

func (v *Validator) evalCheck(c compiledCheck, store domain.FieldStore) bool {
	out, _, err := c.prg.Eval(map[string]any{schema.CheckVariable: v.checkInput(store)})
	if err != nil {
		return false
	}
	ok, isBool := out.Value().(bool)
	return isBool && ok
}

// checkInput is the store as checks see it. Numeric text is trimmed the way
// the number check and the assembler read it.
func (v *Validator) checkInput(store domain.FieldStore) map[string]any {
	fields := store.Snapshot()
	for _, f := range v.def.Fields {
		if s, ok := fields[f.Name].(string); ok && f.IsNumeric() {
			fields[f.Name] = strings.TrimSpace(s)
		}
	}
	return fields
}

// sortFailures orders failures by field position in the step, then by reason.
func (v *Validator) sortFailures(step int, failures domain.Failures) {
	pos := make(map[string]int, len(v.def.Steps[step].Fields))
	for i, name := range v.def.Steps[step].Fields {
		pos[name] = i
	}
	sort.SliceStable(failures, func(i, j int) bool {
		if pos[failures[i].Field] != pos[failures[j].Field] {
			return pos[failures[i].Field] < pos[failures[j].Field]
		}
		return failures[i].Reason < failures[j].Reason
	})
}

func isNumber(text, numeric string) bool {
	text = strings.TrimSpace(text)
	if numeric == schema.NumericInt {
		_, err := strconv.Atoi(text)
		return err == nil
	}
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

func contains(options []string, s string) bool {
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func countItems(f schema.Field, value domain.Value) int {
	switch v := value.(type) {
	case []string:
		return len(v)
	case string:
		return len(splitList(v, f.DelimiterOrDefault()))
	}
	return 0
}

// validRange requires both bounds once either is set, and from <= to for
// equally formatted clock times.
func validRange(value domain.Value) bool {
	m, ok := value.(map[string]any)
	if !ok {
		return false
	}
	from := strings.TrimSpace(domain.AsString(m["from"]))
	to := strings.TrimSpace(domain.AsString(m["to"]))
	if from == "" || to == "" {
		return false
	}
	if len(from) == len(to) {
		return from <= to
	}
	return true
}
