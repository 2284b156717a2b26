package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Initialize())
	return store
}

func TestStore_Repository(t *testing.T) {
	testutil.RunOrderRepositoryTests(t, func(t *testing.T) domain.OrderRepository {
		return newTestStore(t)
	})
}

func TestStore_InitializeIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(&domain.Order{ID: "o1", Status: domain.StatusPending}))

	require.NoError(t, store.Initialize())

	got, err := store.Get("o1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "orders.db")
	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	require.NoError(t, store.Save(&domain.Order{ID: "o1", Status: domain.StatusRunning, Prompt: "keep me"}))
	require.NoError(t, store.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get("o1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "keep me", got.Prompt)
}

func TestStore_SaveEmptyID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(&domain.Order{}))
}
