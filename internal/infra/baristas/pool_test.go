package baristas

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newPool() *Pool {
	return New(&stepClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)})
}

func TestPool_CreateAndFind(t *testing.T) {
	// Setup
	pool := newPool()
	first, err := pool.Create("claude")
	require.NoError(t, err)
	_, err = pool.Create("claude")
	require.NoError(t, err)
	_, err = pool.Create("codex")
	require.NoError(t, err)

	// Execute
	found := pool.FindAvailable("claude")

	// Assert
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID, "oldest idle barista wins")
	assert.Nil(t, pool.FindAvailable("opencode"))
	assert.Len(t, pool.List(), 3)
}

func TestPool_AssignAndRelease(t *testing.T) {
	pool := newPool()
	b, err := pool.Create("claude")
	require.NoError(t, err)

	require.NoError(t, pool.Assign(b.ID, "o1"))
	assert.Equal(t, "o1", pool.Get(b.ID).OrderID)
	assert.Nil(t, pool.FindAvailable("claude"))
	assert.Error(t, pool.Assign(b.ID, "o2"), "busy barista")
	assert.NoError(t, pool.Assign(b.ID, "o1"), "reassigning the same order is allowed")

	pool.Release("o1")
	assert.True(t, pool.Get(b.ID).IsIdle())
	assert.NotNil(t, pool.FindAvailable("claude"))

	pool.Release("unknown") // no-op
}

func TestPool_Errors(t *testing.T) {
	pool := newPool()

	_, err := pool.Create("")
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	assert.ErrorIs(t, pool.Assign("missing", "o1"), domain.ErrBaristaNotFound)
	assert.Nil(t, pool.Get("missing"))
}

func TestPool_ReturnsCopies(t *testing.T) {
	pool := newPool()
	b, err := pool.Create("claude")
	require.NoError(t, err)

	b.OrderID = "tampered"

	assert.True(t, pool.Get(b.ID).IsIdle())
}
