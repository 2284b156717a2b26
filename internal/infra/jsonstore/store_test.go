package jsonstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/testutil"
)

// newTestStore creates a new store with a temporary file for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := New(filepath.Join(t.TempDir(), "orders.json"))
	require.NoError(t, store.Initialize())
	return store
}

func TestStore_Repository(t *testing.T) {
	testutil.RunOrderRepositoryTests(t, func(t *testing.T) domain.OrderRepository {
		return newTestStore(t)
	})
}

func TestStore_Initialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "orders.json")
	store := New(path)
	assert.False(t, store.IsInitialized())

	require.NoError(t, store.Initialize())
	assert.True(t, store.IsInitialized())

	require.NoError(t, store.Save(&domain.Order{ID: "o1", Status: domain.StatusPending}))

	// Initialize again is idempotent and keeps data
	require.NoError(t, store.Initialize())
	got, err := store.Get("o1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestStore_NotInitialized(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "orders.json"))

	_, err := store.Get("o1")
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.ErrorIs(t, store.Save(&domain.Order{ID: "o1"}), domain.ErrNotInitialized)
}

func TestStore_Errors(t *testing.T) {
	t.Run("empty id", func(t *testing.T) {
		store := newTestStore(t)
		assert.Error(t, store.Save(&domain.Order{}))
	})

	t.Run("corrupted file", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0o600))

		_, err := store.List(domain.OrderFilter{})
		assert.ErrorContains(t, err, "parse store file")
	})

	t.Run("newer version", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, os.WriteFile(store.path, []byte(`{"orders":{},"meta":{"version":99}}`), 0o600))

		_, err := store.Get("o1")
		assert.ErrorContains(t, err, "newer than supported")
	})
}

func TestStore_ConcurrentWriters(t *testing.T) {
	// Two handles on one file simulate two cafe processes.
	path := filepath.Join(t.TempDir(), "orders.json")
	a, b := New(path), New(path)
	require.NoError(t, a.Initialize())

	var wg sync.WaitGroup
	for i := range 20 {
		store := a
		if i%2 == 1 {
			store = b
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, store.Save(&domain.Order{ID: id, Status: domain.StatusPending, Created: time.Now()}))
		}(string(rune('a' + i)))
	}
	wg.Wait()

	orders, err := a.List(domain.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 20)
	assert.NoFileExists(t, path+".tmp")
}
