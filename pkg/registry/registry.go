// Package registry builds and caches one engine per wizard definition.
package registry

import (
	"context"
	"sync"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/pkg/ports"
)

// Registry hands out engines for the wizards of a DefinitionLoader.
// Engines are built on first use and kept until Reset.
type Registry struct {
	loader ports.DefinitionLoader
	opts   []formflow.Option

	mu      sync.RWMutex
	engines map[string]*formflow.Engine
}

// New creates a registry over loader. opts are applied to every engine.
func New(loader ports.DefinitionLoader, opts ...formflow.Option) *Registry {
	return &Registry{
		loader:  loader,
		opts:    opts,
		engines: make(map[string]*formflow.Engine),
	}
}

// Use appends engine options. It only affects engines built afterwards.
func (r *Registry) Use(opts ...formflow.Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = append(r.opts, opts...)
}

// Get returns the engine for wizardID, building it from the loader when
// needed. Unknown IDs fail with domain.ErrWizardNotFound from the loader.
func (r *Registry) Get(ctx context.Context, wizardID string) (*formflow.Engine, error) {
	r.mu.RLock()
	eng, ok := r.engines[wizardID]
	opts := r.opts
	r.mu.RUnlock()
	if ok {
		return eng, nil
	}

	def, err := r.loader.Get(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	eng, err = formflow.New(def, append([]formflow.Option{formflow.WithLoader(r.loader)}, opts...)...)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.engines[wizardID]; ok {
		return cached, nil
	}
	r.engines[wizardID] = eng
	return eng, nil
}

// List returns the wizard IDs known to the loader.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	return r.loader.List(ctx)
}

// Loader returns the underlying loader.
func (r *Registry) Loader() ports.DefinitionLoader {
	return r.loader
}

// Reset drops every cached engine so the next Get reloads its definition.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.engines)
}

// Watch resets the registry whenever the loader reports a change and calls
// onChange afterwards. It blocks until ctx is done and returns
// formflow.ErrNotWatchable for loaders that cannot be watched.
func (r *Registry) Watch(ctx context.Context, onChange func()) error {
	w, ok := r.loader.(ports.Watchable)
	if !ok {
		return formflow.ErrNotWatchable
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			r.Reset()
			if onChange != nil {
				onChange()
			}
		}
	}
}
