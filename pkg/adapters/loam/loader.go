package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/schema"
)

// Loader adapts a Loam repository to the ports.DefinitionLoader interface.
// Each wizard is one document: the frontmatter (or the whole YAML/JSON file)
// holds the definition, and a Markdown body becomes the wizard description.
type Loader struct {
	Repo *loam.TypedRepository[WizardMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[WizardMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only, strict Loam repository at path.
// Strict mode makes every adapter return json.Number for numerics, and the
// loader never writes definitions.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[WizardMetadata](repo)), nil
}

// Get loads, decodes and validates the wizard document with the given ID.
// Loam resolves "intake" to intake.md, intake.yaml or intake.json.
func (l *Loader) Get(ctx context.Context, id string) (*schema.Definition, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrWizardNotFound, id, err)
	}
	if !doc.Data.IsWizard() {
		return nil, fmt.Errorf("%w: %s is not a wizard document", domain.ErrWizardNotFound, id)
	}

	def, err := l.convert(doc.ID, doc.Data, doc.Content)
	if err != nil {
		return nil, fmt.Errorf("wizard %s: %w", id, err)
	}
	return def, nil
}

func (l *Loader) convert(docID string, meta WizardMetadata, content string) (*schema.Definition, error) {
	if meta.ID == "" {
		meta.ID = docID
	}
	meta.ID = trimExtension(meta.ID)
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(content)
	}

	// Round trip through JSON so nested sections reach the schema validator
	// with plain JSON shapes, whatever the source format was.
	data, err := json.Marshal(toDocument(meta))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition: %w", err)
	}
	return schema.ParseJSON(data)
}

func toDocument(meta WizardMetadata) map[string]any {
	doc := map[string]any{
		"id":     meta.ID,
		"fields": orEmpty(meta.Fields),
		"steps":  meta.Steps,
	}
	if meta.Title != "" {
		doc["title"] = meta.Title
	}
	if meta.Description != "" {
		doc["description"] = meta.Description
	}
	if len(meta.Rules) > 0 {
		doc["rules"] = meta.Rules
	}
	if len(meta.Checks) > 0 {
		doc["checks"] = meta.Checks
	}
	return normalize(doc).(map[string]any)
}

func orEmpty(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

// normalize converts map[any]any produced by some YAML decoders into
// map[string]any so it can be marshaled to JSON.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			val[k] = normalize(inner)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprintf("%v", k)] = normalize(inner)
		}
		return out
	case []any:
		for i, inner := range val {
			val[i] = normalize(inner)
		}
		return val
	default:
		return v
	}
}

// List returns the IDs of all wizard documents in the repository.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		if !doc.Data.IsWizard() {
			continue
		}
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: wizard '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts: one pending signal is enough for a reload.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
