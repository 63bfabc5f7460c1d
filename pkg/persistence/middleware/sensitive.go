package middleware

import (
	"context"
	"regexp"
	"sync"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/clubdesk/formflow/pkg/schema"
)

type sensitiveMiddleware struct {
	next     ports.StateStore
	byWizard map[string][]string
	patterns []*regexp.Regexp
	vault    *vault
}

// vault keeps sensitive values of live sessions in process memory only.
type vault struct {
	mu     sync.Mutex
	values map[string]map[string]domain.Value
}

func (v *vault) put(sessionID string, values map[string]domain.Value) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[sessionID] = values
}

func (v *vault) get(sessionID string) map[string]domain.Value {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[sessionID]
}

func (v *vault) drop(sessionID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.values, sessionID)
}

// NewSensitiveMiddleware resets sensitive fields to their empty value before
// a state reaches the store. A field is sensitive when its definition marks
// it so, or when its name matches one of patterns.
//
// The original values are kept in process memory and put back on Load, so a
// running server keeps working across requests. After a restart they are
// gone and the wizard asks for them again.
func NewSensitiveMiddleware(defs []*schema.Definition, patterns ...string) (Middleware, error) {
	byWizard := make(map[string][]string, len(defs))
	for _, def := range defs {
		byWizard[def.ID] = def.Sensitive()
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	v := &vault{values: make(map[string]map[string]domain.Value)}
	return func(next ports.StateStore) ports.StateStore {
		return &sensitiveMiddleware{next: next, byWizard: byWizard, patterns: compiled, vault: v}
	}, nil
}

func (m *sensitiveMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	// Work on a copy: the caller keeps using the unredacted state.
	cloned := state.Snapshot()
	kept := make(map[string]domain.Value)
	for _, name := range m.sensitiveFields(cloned) {
		value := cloned.Fields.Value(name)
		if fields, err := cloned.Fields.Set(name, zeroLike(value)); err == nil {
			kept[name] = domain.CloneValue(value)
			cloned.Fields = fields
		}
	}
	if err := m.next.Save(ctx, sessionID, cloned); err != nil {
		return err
	}
	if len(kept) > 0 {
		m.vault.put(sessionID, kept)
	}
	return nil
}

func (m *sensitiveMiddleware) sensitiveFields(state *domain.State) []string {
	names := append([]string(nil), m.byWizard[state.WizardID]...)
	if len(m.patterns) == 0 {
		return names
	}
	for _, key := range state.Fields.Keys() {
		for _, p := range m.patterns {
			if p.MatchString(key) {
				names = append(names, key)
				break
			}
		}
	}
	return names
}

// zeroLike returns the empty value of v's shape.
func zeroLike(v domain.Value) domain.Value {
	switch val := v.(type) {
	case bool:
		return false
	case []string:
		return []string{}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k := range val {
			out[k] = ""
		}
		return out
	default:
		return ""
	}
}

func (m *sensitiveMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	state, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for name, value := range m.vault.get(sessionID) {
		if fields, err := state.Fields.Set(name, domain.CloneValue(value)); err == nil {
			state.Fields = fields
		}
	}
	return state, nil
}

func (m *sensitiveMiddleware) Delete(ctx context.Context, sessionID string) error {
	m.vault.drop(sessionID)
	return m.next.Delete(ctx, sessionID)
}

func (m *sensitiveMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
