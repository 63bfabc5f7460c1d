package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/clubdesk/formflow/pkg/adapters/file"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StateStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunStateStoreContract(t, store)
}

func TestFileStore_AtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	state := domain.NewState("s1", "w", domain.NewFieldStore(map[string]domain.Value{"a": ""}))
	require.NoError(t, store.Save(ctx, "s1", state))

	state.CurrentStep = 3
	require.NoError(t, store.Save(ctx, "s1", state))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "s1.json", entries[0].Name())

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.CurrentStep)
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()
	state := domain.NewState("x", "w", domain.NewFieldStore(nil))

	assert.Error(t, store.Save(ctx, "../escape", state))
	assert.Error(t, store.Save(ctx, "", state))
	_, err := store.Load(ctx, "a/b")
	assert.Error(t, err)
}

func TestFileStore_ListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-s1-123.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
