package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/persistence/middleware"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func encrypted(t *testing.T, cfg middleware.EncryptionConfig, next ports.StateStore) ports.StateStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func secretState(id, email string) *domain.State {
	return domain.NewState(id, "w", domain.NewFieldStore(map[string]domain.Value{"email": email}))
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "s1", secretState("s1", "ada@example.com")))

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, stored.Fields.Has("email"), "plain fields hidden")
	assert.True(t, stored.Fields.Has("__encrypted__"))
	assert.Equal(t, "w", stored.WizardID, "envelope keeps the wizard for listing")

	loaded, err := secure.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", loaded.Fields.Value("email"))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey, newKey := generateKey(t), generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: oldKey}, underlying)
	require.NoError(t, oldStore.Save(ctx, "s1", secretState("s1", "old@example.com")))

	newStore := encrypted(t, middleware.EncryptionConfig{ActiveKey: newKey, FallbackKeys: [][]byte{oldKey}}, underlying)
	loaded, err := newStore.Load(ctx, "s1")
	require.NoError(t, err, "fallback key decrypts")
	assert.Equal(t, "old@example.com", loaded.Fields.Value("email"))

	require.NoError(t, newStore.Save(ctx, "s1", loaded))
	_, err = oldStore.Load(ctx, "s1")
	assert.Error(t, err, "re-encrypted with the new key")
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), "s1", secretState("s1", "x@y.z")))

	secure := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)}, underlying)
	_, err := secure.Load(context.Background(), "s1")
	assert.ErrorContains(t, err, "missing encrypted data envelope")
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("old")},
	})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}
