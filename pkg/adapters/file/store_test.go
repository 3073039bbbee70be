package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/file"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/YOKOPOKE/yokopoke-sub000/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_WritesReadableJSON(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	sess := domain.NewSession("5215512345678", time.Date(2026, 6, 5, 18, 0, 0, 0, time.UTC))
	sess.Mode = domain.BuilderMode{State: domain.NewBuilderState("poke-grande")}
	require.NoError(t, store.Save(ctx, sess.ID, sess))

	data, err := os.ReadFile(filepath.Join(dir, "5215512345678.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode": "BUILDER"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	_, err := file.New(dir).Load(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrCorruptSession)
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		err := store.Save(ctx, id, domain.NewSession(id, time.Now()))
		assert.ErrorIs(t, err, file.ErrInvalidSessionID, id)
	}
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
