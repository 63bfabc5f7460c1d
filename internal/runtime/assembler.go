package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Assembler turns a validated field store into the backend payload.
// Assemble is deterministic and never mutates the store.
type Assembler struct {
	def      *schema.Definition
	resolver *Resolver
}

// NewAssembler creates an assembler for def.
func NewAssembler(def *schema.Definition, resolver *Resolver) *Assembler {
	return &Assembler{def: def, resolver: resolver}
}

// Assemble builds the payload:
//   - list fields are split on their delimiter, trimmed, empties dropped;
//   - numeric text is parsed, and a parse failure is an *domain.InvariantError;
//   - optional fields at their empty value and hidden dependents are omitted;
//   - confirmation fields (match_field) are never sent.
func (a *Assembler) Assemble(store domain.FieldStore) (domain.Payload, error) {
	payload := make(domain.Payload, len(a.def.Fields))

	for _, f := range a.def.Fields {
		if f.MatchField != "" {
			continue
		}
		if _, conditional := a.def.RuleFor(f.Name); conditional && !a.resolver.IsVisible(f.Name, store) {
			continue
		}

		value := store.Value(f.Name)
		if f.Optional && domain.IsEmpty(value) {
			continue
		}

		key := f.Name
		if f.PayloadKey != "" {
			key = f.PayloadKey
		}

		out, keep, err := a.convert(f, value)
		if err != nil {
			return nil, &domain.InvariantError{Field: f.Name, Cause: err}
		}
		if keep {
			payload[key] = out
		}
	}
	return payload, nil
}

func (a *Assembler) convert(f schema.Field, value domain.Value) (any, bool, error) {
	switch {
	case f.IsList():
		text, ok := value.(string)
		if !ok {
			return nil, false, fmt.Errorf("expected delimited text, got %T", value)
		}
		return splitList(text, f.DelimiterOrDefault()), true, nil

	case f.IsNumeric():
		text, ok := value.(string)
		if !ok {
			return nil, false, fmt.Errorf("expected numeric text, got %T", value)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			// Nothing to send; the number has no empty representation.
			return nil, false, nil
		}
		if f.Numeric == schema.NumericInt {
			n, err := strconv.Atoi(text)
			if err != nil {
				return nil, false, err
			}
			return n, true, nil
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, false, err
		}
		return n, true, nil

	default:
		return domain.CloneValue(value), true, nil
	}
}

// splitList splits delimited text, trims entries and drops empty ones.
// Order and duplicates are preserved.
func splitList(text, delimiter string) []string {
	if delimiter == "\n" {
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}
	out := []string{}
	for _, part := range strings.Split(text, delimiter) {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
