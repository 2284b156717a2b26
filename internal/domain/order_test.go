package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrder_ProjectRoot(t *testing.T) {
	o := &Order{Counter: "/repo"}
	assert.Equal(t, "/repo", o.ProjectRoot())

	o.SetVariable(ProjectRootVar, "/repo/.cafe-worktrees/order-1")
	assert.Equal(t, "/repo/.cafe-worktrees/order-1", o.ProjectRoot())
}

func TestOrder_MergeVariables(t *testing.T) {
	o := &Order{}
	o.MergeVariables(nil)
	assert.Nil(t, o.Variables)

	o.MergeVariables(map[string]string{"A": "1", "B": "2"})
	o.MergeVariables(map[string]string{"B": "3"})
	assert.Equal(t, map[string]string{"A": "1", "B": "3"}, o.Variables)
}

func TestOrder_RepoRef(t *testing.T) {
	assert.Equal(t, "/repo", (&Order{Counter: "/repo"}).RepoRef())
	assert.Equal(t, "main-cafe", (&Order{Counter: "/repo", CafeID: "main-cafe"}).RepoRef())
}

func TestOrder_Clone(t *testing.T) {
	o := &Order{
		ID:        "a",
		Variables: map[string]string{"K": "v"},
		Worktree:  &WorktreeInfo{Path: "/wt", Branch: "order-a"},
	}
	c := o.Clone()
	require.Equal(t, o, c)

	c.Variables["K"] = "changed"
	c.Worktree.Path = "/other"
	assert.Equal(t, "v", o.Variables["K"])
	assert.Equal(t, "/wt", o.Worktree.Path)
}

func TestWorktreeInfo_MarkRemoved(t *testing.T) {
	o := &Order{Worktree: &WorktreeInfo{Path: "/wt", Branch: "order-a", BaseBranch: "main"}}
	assert.True(t, o.HasActiveWorktree())

	o.Worktree.MarkRemoved()

	assert.False(t, o.HasActiveWorktree())
	assert.True(t, o.Worktree.Removed)
	assert.Empty(t, o.Worktree.Path)
	assert.Equal(t, "order-a", o.Worktree.Branch)
	assert.Equal(t, "main", o.Worktree.BaseBranch)
}

func TestWorktreeInfo_MarkMerged(t *testing.T) {
	w := &WorktreeInfo{Branch: "order-a"}
	w.MarkMerged("main", "abc123")
	assert.True(t, w.Merged)
	assert.Equal(t, "main", w.MergedTo)
	assert.Equal(t, "abc123", w.MergeCommit)
}

func TestOrderFilter_Matches(t *testing.T) {
	running := &Order{Status: StatusRunning, CafeID: "a"}
	done := &Order{Status: StatusCompleted, CafeID: "b"}

	tests := []struct {
		name   string
		filter OrderFilter
		order  *Order
		want   bool
	}{
		{"default hides terminal", OrderFilter{}, done, false},
		{"default shows active", OrderFilter{}, running, true},
		{"include terminal", OrderFilter{IncludeTerminal: true}, done, true},
		{"cafe mismatch", OrderFilter{CafeID: "b"}, running, false},
		{"cafe match", OrderFilter{CafeID: "b", IncludeTerminal: true}, done, true},
		{"explicit status wins", OrderFilter{Statuses: []OrderStatus{StatusCompleted}}, done, true},
		{"explicit status excludes", OrderFilter{Statuses: []OrderStatus{StatusCompleted}}, running, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.order))
		})
	}
}

func TestBranchName(t *testing.T) {
	assert.Equal(t, "order-123", BranchName("order", "123"))
	assert.Equal(t, "order-123", BranchName("", "123"))
	assert.Equal(t, "feat/x-abc", BranchName("feat/x", "abc"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "0f8fad5b", ShortID("0f8fad5b-d9cb-469f-a165-70867728950e"))
}

func TestResolveWorktreeRoot(t *testing.T) {
	root, err := ResolveWorktreeRoot("/repo", "")
	require.NoError(t, err)
	assert.Equal(t, "/repo/"+DefaultWorktreeRoot, root)

	root, err = ResolveWorktreeRoot("/repo", "/tmp/wt")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/wt", root)

	_, err = ResolveWorktreeRoot("/repo", ".")
	assert.ErrorIs(t, err, ErrWorktreeRootNotInRepo)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/d/logs/orders/x.log", OrderLogPath("/d", "x"))
	assert.Equal(t, "/d/logs/cafe.log", GlobalLogPath("/d"))
	assert.Equal(t, "/d/orders.json", OrdersStorePath("/d"))
	assert.Equal(t, "/d/orders.db", OrdersDBPath("/d"))
	assert.Equal(t, "/d/cafes.toml", CafesFilePath("/d"))
	assert.Equal(t, "/d/recipes", RecipesDir("/d"))
	assert.Equal(t, "/d/config.toml", ConfigPath("/d"))
}
