package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
)

// DefinitionLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DefinitionLoader.
// expected lists the wizard IDs the loader was seeded with.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, expected []string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get_Success", func(t *testing.T) {
		for _, id := range expected {
			def, err := loader.Get(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error getting wizard %s: %v", id, err)
			}
			if def.ID != id {
				t.Errorf("got wizard %q, want %q", def.ID, id)
			}
			if err := def.Validate(); err != nil {
				t.Errorf("loader returned an invalid definition: %v", err)
			}
		}
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := loader.Get(ctx, "non-existent-wizard")
		if !errors.Is(err, domain.ErrWizardNotFound) {
			t.Errorf("expected ErrWizardNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		ids, err := loader.List(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing wizards: %v", err)
		}
		if len(ids) != len(expected) {
			t.Errorf("expected %d wizards, got %d (%v)", len(expected), len(ids), ids)
		}

		lookup := make(map[string]bool)
		for _, id := range ids {
			lookup[id] = true
		}
		for _, id := range expected {
			if !lookup[id] {
				t.Errorf("wizard %s missing from list", id)
			}
		}
	})
}
