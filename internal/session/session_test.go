package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adrianferrergutierrez/frontend-asw/internal/models"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadWithoutSelection(t *testing.T) {
	store := openStore(t)
	user, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := openStore(t)
	saved := &models.UserDetail{
		User:     models.User{ID: 42, Email: "dev@example.com"},
		Name:     "Dev",
		Username: "dev",
		Bio:      "hola",
	}
	require.NoError(t, store.Save(saved))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, saved, loaded)
}

func TestSaveOverwritesPreviousSelection(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Save(&models.UserDetail{User: models.User{ID: 1, Email: "a@example.com"}}))
	require.NoError(t, store.Save(&models.UserDetail{User: models.User{ID: 2, Email: "b@example.com"}}))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(2), loaded.ID)
}

func TestClear(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Save(&models.UserDetail{User: models.User{ID: 1}}))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing an already empty session is fine.
	require.NoError(t, store.Clear())
}
