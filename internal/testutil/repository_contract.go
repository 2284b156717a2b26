package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
)

// RunOrderRepositoryTests exercises the behavior every OrderRepository
// implementation shares. newRepo must return an initialized, empty store.
func RunOrderRepositoryTests(t *testing.T, newRepo func(t *testing.T) domain.OrderRepository) {
	t.Helper()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) // Stores keep second precision at least

	t.Run("save and get", func(t *testing.T) {
		repo := newRepo(t)
		order := &domain.Order{
			ID:           "0f8fad5b-d9cb-469f-a165-70867728950e",
			WorkflowID:   "default",
			WorkflowName: "Default",
			Provider:     "claude",
			Prompt:       "fix the login bug",
			Counter:      "/repo",
			CafeID:       "shop",
			Status:       domain.StatusRunning,
			Created:      base,
			Started:      base.Add(time.Minute),
			BaristaID:    "b1",
			Variables:    map[string]string{domain.ProjectRootVar: "/repo/.cafe-worktrees/order-0f8fad5b"},
			Worktree: &domain.WorktreeInfo{
				Path:       "/repo/.cafe-worktrees/order-0f8fad5b",
				Branch:     "order-0f8fad5b",
				BaseBranch: "main",
				RepoPath:   "/repo",
				Created:    base,
			},
		}

		require.NoError(t, repo.Save(order))
		got, err := repo.Get(order.ID)

		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, order.Prompt, got.Prompt)
		assert.Equal(t, order.Status, got.Status)
		assert.True(t, order.Created.Equal(got.Created))
		assert.True(t, order.Started.Equal(got.Started))
		assert.True(t, got.Ended.IsZero())
		assert.Equal(t, order.Variables, got.Variables)
		require.NotNil(t, got.Worktree)
		assert.Equal(t, order.Worktree.Branch, got.Worktree.Branch)
		assert.Equal(t, order.Worktree.Path, got.Worktree.Path)
		assert.Equal(t, "shop", got.CafeID)
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.Get("missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save updates", func(t *testing.T) {
		repo := newRepo(t)
		order := &domain.Order{ID: "o1", Status: domain.StatusPending, Created: base}
		require.NoError(t, repo.Save(order))

		order.Status = domain.StatusFailed
		order.Error = "exit status 1"
		order.Worktree = &domain.WorktreeInfo{Branch: "order-o1", Removed: true, Merged: true, MergedTo: "main", MergeCommit: "abc123"}
		require.NoError(t, repo.Save(order))

		got, err := repo.Get("o1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusFailed, got.Status)
		assert.Equal(t, "exit status 1", got.Error)
		assert.True(t, got.Worktree.Removed)
		assert.Empty(t, got.Worktree.Path)
		assert.Equal(t, "abc123", got.Worktree.MergeCommit)
	})

	t.Run("list filters and orders oldest first", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Save(&domain.Order{ID: "c", Status: domain.StatusCompleted, Created: base.Add(3 * time.Hour)}))
		require.NoError(t, repo.Save(&domain.Order{ID: "b", Status: domain.StatusRunning, CafeID: "shop", Created: base.Add(2 * time.Hour)}))
		require.NoError(t, repo.Save(&domain.Order{ID: "a", Status: domain.StatusPending, CafeID: "shop", Created: base.Add(time.Hour)}))
		require.NoError(t, repo.Save(&domain.Order{ID: "d", Status: domain.StatusPending, Created: base.Add(4 * time.Hour)}))

		active, err := repo.List(domain.OrderFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "d"}, orderIDs(active))

		all, err := repo.List(domain.OrderFilter{IncludeTerminal: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, orderIDs(all))

		shop, err := repo.List(domain.OrderFilter{CafeID: "shop"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, orderIDs(shop))

		completed, err := repo.List(domain.OrderFilter{Statuses: []domain.OrderStatus{domain.StatusCompleted}})
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, orderIDs(completed))
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Save(&domain.Order{ID: "o1", Status: domain.StatusPending, Created: base}))

		require.NoError(t, repo.Delete("o1"))
		require.NoError(t, repo.Delete("o1"))

		got, err := repo.Get("o1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("returned orders are detached", func(t *testing.T) {
		repo := newRepo(t)
		order := &domain.Order{ID: "o1", Status: domain.StatusPending, Created: base}
		require.NoError(t, repo.Save(order))

		order.Status = domain.StatusRunning
		got, err := repo.Get("o1")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, got.Status)
	})
}

func orderIDs(orders []*domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
