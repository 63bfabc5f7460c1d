package middleware_test

import (
	"context"
	"testing"

	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/persistence/middleware"
	"github.com/clubdesk/formflow/pkg/registration"
	"github.com/clubdesk/formflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensitiveMiddleware(t *testing.T) {
	def := registration.Definition()
	mw, err := middleware.NewSensitiveMiddleware([]*schema.Definition{def}, "^emergency")
	require.NoError(t, err)

	underlying := memory.NewStore()
	store := mw(underlying)
	ctx := context.Background()

	fields := def.Defaults()
	for k, v := range map[string]any{
		"fullName":         "Ada Lovelace",
		"password":         "longenough1",
		"confirmPassword":  "longenough1",
		"emergencyContact": "Charles, 555",
	} {
		fields, err = fields.Set(k, v)
		require.NoError(t, err)
	}
	state := domain.NewState("s1", def.ID, fields)

	require.NoError(t, store.Save(ctx, "s1", state))

	loaded, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Fields.Value("password"))
	assert.Equal(t, "", loaded.Fields.Value("confirmPassword"))
	assert.Equal(t, "", loaded.Fields.Value("emergencyContact"), "pattern match")
	assert.Equal(t, "Ada Lovelace", loaded.Fields.Value("fullName"))
	assert.Equal(t, "longenough1", state.Fields.Value("password"), "caller's state untouched")

	live, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "longenough1", live.Fields.Value("password"), "restored from process memory")

	restarted, err := middleware.NewSensitiveMiddleware([]*schema.Definition{def}, "^emergency")
	require.NoError(t, err)
	resumed, err := restarted(underlying).Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "", resumed.Fields.Value("password"), "asked again after a restart")

	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, underlying.Save(ctx, "s1", loaded))
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "", again.Fields.Value("password"), "delete forgets kept values")
}

func TestSensitiveMiddleware_OtherWizardsUntouched(t *testing.T) {
	mw, err := middleware.NewSensitiveMiddleware([]*schema.Definition{registration.Definition()})
	require.NoError(t, err)
	underlying := memory.NewStore()
	ctx := context.Background()

	state := domain.NewState("s1", "other", domain.NewFieldStore(map[string]domain.Value{"password": "kept"}))
	require.NoError(t, mw(underlying).Save(ctx, "s1", state))

	loaded, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "kept", loaded.Fields.Value("password"))
}

func TestSensitiveMiddleware_BadPattern(t *testing.T) {
	_, err := middleware.NewSensitiveMiddleware(nil, "(")
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	def := registration.Definition()
	redact, err := middleware.NewSensitiveMiddleware([]*schema.Definition{def})
	require.NoError(t, err)
	encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	underlying := memory.NewStore()
	store := middleware.Chain(underlying, redact, encrypt)
	ctx := context.Background()

	fields, err := def.Defaults().Set("password", "longenough1")
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "s1", domain.NewState("s1", def.ID, fields)))

	raw, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, raw.Fields.Keys(), "password", "only the encrypted envelope reaches the store")

	// Without the in-memory values, decryption yields the redacted state.
	fresh, err := middleware.NewSensitiveMiddleware([]*schema.Definition{def})
	require.NoError(t, err)
	loaded, err := middleware.Chain(underlying, fresh, encrypt).Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Fields.Value("password"), "redacted before encryption")
}
