package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Loader implements ports.DefinitionLoader over definitions held in memory.
type Loader struct {
	mu   sync.RWMutex
	defs map[string]*schema.Definition
}

// NewLoader validates and registers the given definitions.
func NewLoader(defs ...*schema.Definition) (*Loader, error) {
	l := &Loader{defs: make(map[string]*schema.Definition, len(defs))}
	for _, def := range defs {
		if err := l.Add(def); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// NewFromYAML parses raw YAML documents, keyed by a label used in errors.
// This improves DX for tests and embedded wizards.
func NewFromYAML(docs map[string]string) (*Loader, error) {
	l := &Loader{defs: make(map[string]*schema.Definition, len(docs))}
	for label, doc := range docs {
		def, err := schema.ParseYAML([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		if err := l.Add(def); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
	}
	return l, nil
}

// Add registers def, replacing any definition with the same ID.
func (l *Loader) Add(def *schema.Definition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("definition missing ID")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defs[def.ID] = def
	return nil
}

// Get returns the definition with the given ID.
func (l *Loader) Get(ctx context.Context, id string) (*schema.Definition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	def, ok := l.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWizardNotFound, id)
	}
	return def, nil
}

// List returns all wizard IDs in sorted order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.defs))
	for id := range l.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic order
	return ids, nil
}
