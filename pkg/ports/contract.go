package ports

import (
	"context"
	"testing"
	"time"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractState(sessionID string) *domain.State {
	fields := domain.NewFieldStore(map[string]domain.Value{
		"fullName":     "",
		"sports":       []string{},
		"agree":        false,
		"availability": map[string]any{"from": "", "to": ""},
	})
	return domain.NewState(sessionID, "contract", fields)
}

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := contractState(sessionID)
		state.Fields, _ = state.Fields.Set("fullName", "Ada Lovelace")
		state.Fields, _ = state.Fields.Set("sports", []string{"Yoga", "Pilates"})
		state.Fields, _ = state.Fields.Set("agree", true)
		state.CurrentStep = 2
		state.LastFailures = domain.Failures{{Field: "fullName", Reason: domain.ReasonMissingRequired}}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, 2, loaded.CurrentStep)
		assert.Equal(t, "contract", loaded.WizardID)
		assert.Equal(t, "Ada Lovelace", loaded.Fields.Value("fullName"))
		// JSON backends decode arrays as []any; the store normalizes them back.
		assert.Equal(t, []string{"Yoga", "Pilates"}, loaded.Fields.Value("sports"))
		assert.Equal(t, true, loaded.Fields.Value("agree"))
		assert.Equal(t, state.Fields.Keys(), loaded.Fields.Keys(), "no key may be lost")
		assert.True(t, domain.SameSet(state.LastFailures, loaded.LastFailures))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save Does Not Alias", func(t *testing.T) {
		state := contractState(sessionID + "-alias")
		require.NoError(t, store.Save(ctx, state.SessionID, state))
		defer func() { _ = store.Delete(ctx, state.SessionID) }()

		state.CurrentStep = 3
		loaded, err := store.Load(ctx, state.SessionID)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.CurrentStep, "mutating the saved pointer must not change the store")
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, contractState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, contractState(id1))
		_ = store.Save(ctx, id2, contractState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
