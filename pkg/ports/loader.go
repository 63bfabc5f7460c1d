package ports

import (
	"context"

	"github.com/clubdesk/formflow/pkg/schema"
)

// DefinitionLoader resolves wizard definitions.
type DefinitionLoader interface {
	// Get returns the validated definition with the given ID.
	// Returns domain.ErrWizardNotFound if there is none.
	Get(ctx context.Context, id string) (*schema.Definition, error)

	// List returns the IDs of all available wizards.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload while authoring definitions.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definitions change.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
