// Package domain contains core business entities and interfaces.
package domain

import (
	"maps"
	"time"
)

// ProjectRootVar is the variable that points the engine at the directory it works in.
const ProjectRootVar = "PROJECT_ROOT"

// Order represents a unit of requested work managed by git-cafe.
// Fields are ordered to minimize memory padding.
type Order struct {
	Created      time.Time         `json:"created"`
	Started      time.Time         `json:"started,omitzero"`
	Ended        time.Time         `json:"ended,omitzero"`
	Variables    map[string]string `json:"variables,omitempty"`
	Worktree     *WorktreeInfo     `json:"worktree,omitempty"`
	ID           string            `json:"id"`
	WorkflowID   string            `json:"workflowID"`
	WorkflowName string            `json:"workflowName"` // Snapshot taken at creation
	Provider     string            `json:"provider,omitempty"`
	Prompt       string            `json:"prompt,omitempty"`
	Counter      string            `json:"counter"`          // Resolved repository path
	CafeID       string            `json:"cafeID,omitempty"` // Set when the order was placed against a registered cafe
	Status       OrderStatus       `json:"status"`
	Error        string            `json:"error,omitempty"`
	BaristaID    string            `json:"baristaID,omitempty"`
}

// MergeVariables copies vars into the order, overwriting existing keys.
func (o *Order) MergeVariables(vars map[string]string) {
	if len(vars) == 0 {
		return
	}
	if o.Variables == nil {
		o.Variables = make(map[string]string, len(vars))
	}
	maps.Copy(o.Variables, vars)
}

// SetVariable sets a single variable.
func (o *Order) SetVariable(key, value string) {
	o.MergeVariables(map[string]string{key: value})
}

// ProjectRoot returns the directory the engine should work in.
func (o *Order) ProjectRoot() string {
	if root := o.Variables[ProjectRootVar]; root != "" {
		return root
	}
	return o.Counter
}

// HasActiveWorktree returns true if the order owns a worktree that has not been removed.
func (o *Order) HasActiveWorktree() bool {
	return o.Worktree != nil && !o.Worktree.Removed
}

// RepoRef returns the repository reference the order was placed against.
// The cafe ID wins when the order is grouped under a registered cafe.
func (o *Order) RepoRef() string {
	if o.CafeID != "" {
		return o.CafeID
	}
	return o.Counter
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	if o.Variables != nil {
		c.Variables = maps.Clone(o.Variables)
	}
	if o.Worktree != nil {
		wt := *o.Worktree
		c.Worktree = &wt
	}
	return &c
}

// WorktreeInfo describes an order's isolated workspace.
// Fields are ordered to minimize memory padding.
type WorktreeInfo struct {
	Created     time.Time `json:"created"`
	Path        string    `json:"path"`
	Branch      string    `json:"branch"`
	BaseBranch  string    `json:"baseBranch"`
	RepoPath    string    `json:"repoPath"`
	MergedTo    string    `json:"mergedTo,omitempty"`
	MergeCommit string    `json:"mergeCommit,omitempty"`
	Removed     bool      `json:"removed,omitempty"`
	Merged      bool      `json:"merged,omitempty"`
}

// MarkRemoved records that the working directory is gone.
// The branch and merge metadata stay for audit.
func (w *WorktreeInfo) MarkRemoved() {
	w.Removed = true
	w.Path = ""
}

// MarkMerged records a completed merge into target.
func (w *WorktreeInfo) MarkMerged(target, commit string) {
	w.Merged = true
	w.MergedTo = target
	w.MergeCommit = commit
}

// OrderFilter specifies criteria for listing orders.
type OrderFilter struct {
	CafeID          string        // Empty = all cafes
	Statuses        []OrderStatus // Empty = all statuses
	IncludeTerminal bool          // Include completed/failed/cancelled orders
}

// Matches reports whether the order satisfies the filter.
func (f OrderFilter) Matches(o *Order) bool {
	if f.CafeID != "" && o.CafeID != f.CafeID {
		return false
	}
	if !f.IncludeTerminal && o.Status.IsTerminal() && len(f.Statuses) == 0 {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if s == o.Status {
				return true
			}
		}
		return false
	}
	return true
}
