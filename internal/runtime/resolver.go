package runtime

import (
	"strings"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Resolver derives which fields are currently visible and required from the
// values of their controlling fields. It never mutates the store.
type Resolver struct {
	def *schema.Definition
}

// NewResolver creates a resolver for a validated definition.
func NewResolver(def *schema.Definition) *Resolver {
	return &Resolver{def: def}
}

// IsVisible reports whether field should be shown. A field whose controller
// is hidden is hidden too.
func (r *Resolver) IsVisible(field string, store domain.FieldStore) bool {
	visible, _ := r.resolve(field, store, len(r.def.Rules)+1)
	return visible
}

// IsRequired reports whether field must be non-empty to pass validation.
func (r *Resolver) IsRequired(field string, store domain.FieldStore) bool {
	_, required := r.resolve(field, store, len(r.def.Rules)+1)
	return required
}

func (r *Resolver) resolve(field string, store domain.FieldStore, depth int) (visible, required bool) {
	f, ok := r.def.Field(field)
	if !ok || depth < 0 {
		return false, false
	}

	rule, ok := r.def.RuleFor(field)
	if !ok {
		return true, f.Required
	}

	controllerVisible, _ := r.resolve(rule.Controller, store, depth-1)
	triggered := controllerVisible && Matches(store.Value(rule.Controller), rule.Trigger)

	switch rule.EffectOrDefault() {
	case schema.EffectRequire:
		return true, triggered
	case schema.EffectShow:
		return triggered, triggered && f.Required
	default:
		return triggered, triggered
	}
}

// Matches reports whether a controlling value equals a trigger.
// Comparison is case-insensitive; booleans match "true"/"yes" and
// "false"/"no"; multi-choice values match when any selection does.
func Matches(value domain.Value, trigger string) bool {
	trigger = strings.TrimSpace(trigger)
	switch v := value.(type) {
	case bool:
		if v {
			return strings.EqualFold(trigger, "true") || strings.EqualFold(trigger, "yes")
		}
		return strings.EqualFold(trigger, "false") || strings.EqualFold(trigger, "no")
	case string:
		return strings.EqualFold(strings.TrimSpace(v), trigger)
	case []string:
		for _, item := range v {
			if strings.EqualFold(strings.TrimSpace(item), trigger) {
				return true
			}
		}
	}
	return false
}
