package runtime_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/clubdesk/formflow/internal/runtime"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func properties(t *testing.T, minSuccessful int) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = minSuccessful
	return gopter.NewProperties(parameters)
}

// genFieldValues draws values for a handful of text fields across all steps,
// mixing valid and invalid input.
func genFieldValues() gopter.Gen {
	return gen.SliceOfN(6, gen.OneGenOf(
		gen.AlphaString(),
		gen.Const(""),
		gen.OneConstOf("yes", "no", "YES", "4", "ada@example.com", " , ,", "Yoga, Pilates"),
	))
}

var propertyFields = []string{"fullName", "email", "chronicIllness", "chronicIllnessDetails", "sports", "trainingYears"}

func storeFromValues(t *testing.T, values []string) domain.FieldStore {
	def := registration.Definition()
	store := def.Defaults()
	for i, v := range values {
		if i >= len(propertyFields) {
			break
		}
		next, err := store.Set(propertyFields[i], v)
		if err != nil {
			t.Fatalf("set %s: %v", propertyFields[i], err)
		}
		store = next
	}
	return store
}

func TestProperty_ValidateIsPure(t *testing.T) {
	def := registration.Definition()
	v, err := runtime.NewValidator(def, runtime.NewResolver(def))
	if err != nil {
		t.Fatal(err)
	}
	props := properties(t, 200)

	props.Property("validate(i, s) is repeatable and leaves s unchanged", prop.ForAll(
		func(values []string, step int) bool {
			store := storeFromValues(t, values)
			before := store.Snapshot()
			first := v.Validate(step, store)
			second := v.Validate(step, store)
			return domain.SameSet(first, second) && reflect.DeepEqual(before, store.Snapshot())
		},
		genFieldValues(),
		gen.IntRange(0, len(def.Steps)-1),
	))

	props.TestingRun(t)
}

func TestProperty_NextNeverAdvancesOnFailures(t *testing.T) {
	e := newEngine(t)
	props := properties(t, 100)

	props.Property("next advances iff the step validates", prop.ForAll(
		func(values []string) bool {
			state, err := e.Start(context.Background(), "p", nil)
			if err != nil {
				return false
			}
			state.Fields = storeFromValues(t, values)
			failures := e.Validate(state, state.CurrentStep)

			next, got, err := e.Next(context.Background(), state)
			if err != nil {
				return false
			}
			if len(failures) > 0 {
				return next.CurrentStep == state.CurrentStep && domain.SameSet(failures, got)
			}
			return next.CurrentStep == state.CurrentStep+1 && len(got) == 0
		},
		genFieldValues(),
	))

	props.TestingRun(t)
}

func TestProperty_BackReachesPrevious(t *testing.T) {
	e := newEngine(t)
	last := e.Definition().LastStep()
	props := properties(t, 100)

	props.Property("back from i > 0 lands on i-1 and keeps fields", prop.ForAll(
		func(step int, values []string) bool {
			state, err := e.Start(context.Background(), "p", nil)
			if err != nil {
				return false
			}
			state.CurrentStep = step
			state.Fields = storeFromValues(t, values)

			prev, err := e.Back(context.Background(), state)
			if err != nil {
				return false
			}
			return prev.CurrentStep == step-1 && reflect.DeepEqual(prev.Fields.Snapshot(), state.Fields.Snapshot())
		},
		gen.IntRange(1, last),
		genFieldValues(),
	))

	props.TestingRun(t)
}

func TestProperty_AssembleIsIdempotent(t *testing.T) {
	def := registration.Definition()
	a := runtime.NewAssembler(def, runtime.NewResolver(def))
	props := properties(t, 200)

	props.Property("assemble(s) == assemble(s)", prop.ForAll(
		func(items []string) bool {
			store, err := def.Defaults().Set("sports", strings.Join(items, ", "))
			if err != nil {
				return false
			}
			first, err1 := a.Assemble(store)
			second, err2 := a.Assemble(store)
			return err1 == nil && err2 == nil && reflect.DeepEqual(first, second)
		},
		gen.SliceOf(gen.AlphaString()),
	))

	props.Property("list entries are trimmed and never empty", prop.ForAll(
		func(items []string) bool {
			store, err := def.Defaults().Set("sports", strings.Join(items, " , "))
			if err != nil {
				return false
			}
			payload, err := a.Assemble(store)
			if err != nil {
				return false
			}
			var want []string
			for _, item := range items {
				if item != "" {
					want = append(want, item)
				}
			}
			got := payload["sports"].([]string)
			return len(got) == len(want) && (len(want) == 0 || reflect.DeepEqual(got, want))
		},
		gen.SliceOf(gen.AlphaString()),
	))

	props.TestingRun(t)
}
