package shared

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/testutil"
)

func TestGetOrder(t *testing.T) {
	repo := testutil.NewMockOrderRepository()
	repo.Orders["a"] = &domain.Order{ID: "a"}

	order, err := GetOrder(repo, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", order.ID)

	_, err = GetOrder(repo, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	repo.GetErr = assert.AnError
	_, err = GetOrder(repo, "a")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "get order")
}

func TestResolveEngine(t *testing.T) {
	engine := testutil.NewMockEngine()
	got, err := ResolveEngine(&testutil.MockEngineProvider{E: engine})
	require.NoError(t, err)
	assert.Same(t, engine, got)

	_, err = ResolveEngine(&testutil.MockEngineProvider{})
	assert.Equal(t, domain.KindEngineNotInitialized, domain.KindOf(err))

	_, err = ResolveEngine(nil)
	assert.Equal(t, domain.KindEngineNotInitialized, domain.KindOf(err))
}

func TestCancelBestEffort(t *testing.T) {
	engine := testutil.NewMockEngine()
	logger := testutil.NewMockLogger()
	provider := &testutil.MockEngineProvider{E: engine}

	// Nothing to cancel is silent.
	CancelBestEffort(context.Background(), provider, logger, "a")
	assert.Empty(t, logger.Entries)

	// Other failures are logged.
	engine.CancelErr = errors.New("engine crashed")
	CancelBestEffort(context.Background(), provider, logger, "a")
	require.Len(t, logger.Entries, 1)
	assert.Contains(t, logger.Entries[0].Msg, "engine crashed")

	// Missing engine is a no-op.
	CancelBestEffort(context.Background(), &testutil.MockEngineProvider{}, logger, "a")
	CancelBestEffort(context.Background(), nil, logger, "a")
	assert.Len(t, logger.Entries, 1)
}

func completedOrder() *domain.Order {
	return &domain.Order{
		ID:       "o1",
		Provider: "claude",
		Counter:  "/repo",
		Status:   domain.StatusCompleted,
		Worktree: &domain.WorktreeInfo{Path: "/repo/wt/order-o1", Branch: "order-o1"},
	}
}

func TestEnsureSession_LiveSessionShortCircuits(t *testing.T) {
	engine := testutil.NewMockEngine()
	engine.Sessions["o1"] = true
	order := completedOrder()
	order.Status = domain.StatusRunning

	require.NoError(t, EnsureSession(context.Background(), engine, testutil.NewMockBaristaPool(), order))
	assert.False(t, engine.Called("RestoreSessionForFollowup"))
}

func TestEnsureSession_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *domain.Order)
		want   error
	}{
		{"not completed", func(o *domain.Order) { o.Status = domain.StatusFailed }, domain.ErrNotCompleted},
		{"no worktree", func(o *domain.Order) { o.Worktree = nil }, domain.ErrNoWorktree},
		{"removed worktree", func(o *domain.Order) { o.Worktree.MarkRemoved() }, domain.ErrWorktreeRemoved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := testutil.NewMockEngine()
			baristas := testutil.NewMockBaristaPool()
			order := completedOrder()
			tt.mutate(order)

			err := EnsureSession(context.Background(), engine, baristas, order)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
			assert.False(t, engine.Called("RestoreSessionForFollowup"))
			assert.Empty(t, baristas.Baristas)
		})
	}
}

func TestEnsureSession_RestoresWithMatchingBarista(t *testing.T) {
	engine := testutil.NewMockEngine()
	baristas := testutil.NewMockBaristaPool()
	other, _ := baristas.Create("codex")
	idle, _ := baristas.Create("claude")
	order := completedOrder()
	order.CafeID = "shop"

	require.NoError(t, EnsureSession(context.Background(), engine, baristas, order))

	assert.Equal(t, idle.ID, engine.RestoredBarista)
	assert.NotEqual(t, other.ID, engine.RestoredBarista)
	assert.Equal(t, "shop", engine.RestoredCounter)
	assert.Equal(t, "/repo/wt/order-o1", engine.RestoredCwd)
	assert.Equal(t, idle.ID, order.BaristaID)
	assert.Equal(t, "o1", baristas.Get(idle.ID).OrderID)
}

func TestEnsureSession_CreatesBaristaAndWrapsRestoreFailure(t *testing.T) {
	engine := testutil.NewMockEngine()
	engine.RestoreErr = errors.New("no transcript")
	baristas := testutil.NewMockBaristaPool()

	err := EnsureSession(context.Background(), engine, baristas, completedOrder())

	assert.Equal(t, domain.KindSessionRestoreFailed, domain.KindOf(err))
	assert.Contains(t, err.Error(), "no transcript")
	assert.Len(t, baristas.Baristas, 1)
	assert.Equal(t, []string{"o1"}, baristas.Released)
}

func TestResolveCounter(t *testing.T) {
	cafes := testutil.NewMockCafeRepository()
	cafes.Cafes["shop"] = domain.Cafe{ID: "shop", Path: "/srv/shop", BaseBranch: "develop", WorktreeRoot: "/tmp/wt"}
	git := &testutil.MockGit{}

	c, err := ResolveCounter(cafes, git, "shop")
	require.NoError(t, err)
	assert.Equal(t, &Counter{Path: "/srv/shop", CafeID: "shop", BaseBranch: "develop", WorktreeRoot: "/tmp/wt"}, c)

	dir := t.TempDir()
	c, err = ResolveCounter(cafes, git, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, c.Path)
	assert.Empty(t, c.CafeID)

	_, err = ResolveCounter(cafes, git, filepath.Join(dir, "missing"))
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrCafeNotFound)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = ResolveCounter(cafes, git, file)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = ResolveCounter(cafes, git, "")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAttachAndDetachWorktree(t *testing.T) {
	worktrees := testutil.NewMockWorktreeManager()
	clock := &testutil.MockClock{NowTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	order := &domain.Order{ID: "o1", Counter: "/repo"}
	order.SetVariable(domain.ProjectRootVar, "/repo")

	err := AttachWorktree(context.Background(), worktrees, clock, order, WorktreeParams{
		RepoPath: "/repo",
		Root:     ".wt",
		Prefix:   "feat",
	})
	require.NoError(t, err)

	require.Len(t, worktrees.Created, 1)
	assert.Equal(t, "/repo/.wt", worktrees.Created[0].WorktreeRoot)
	assert.Equal(t, "feat-o1", worktrees.Created[0].Branch)
	assert.Equal(t, "/repo/.wt/feat-o1", order.Worktree.Path)
	assert.Equal(t, clock.NowTime, order.Worktree.Created)
	assert.Equal(t, "/repo/.wt/feat-o1", order.ProjectRoot())

	DetachWorktree(order)
	assert.True(t, order.Worktree.Removed)
	assert.Equal(t, "feat-o1", order.Worktree.Branch)
	assert.Equal(t, "/repo", order.ProjectRoot())
}

func TestValidateMessageAndVariables(t *testing.T) {
	msg, err := ValidateMessage("  hi \n")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg)
	_, err = ValidateMessage("   ")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	assert.NoError(t, ValidateVariables(map[string]string{"FOO_1": "x", "_bar": "y"}))
	assert.Error(t, ValidateVariables(map[string]string{"1FOO": "x"}))
	assert.Error(t, ValidateVariables(map[string]string{"A-B": "x"}))
}
