package shared

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Counter is a resolved repository reference.
type Counter struct {
	Path         string
	CafeID       string // Empty for ad-hoc directories
	BaseBranch   string // Cafe override, may be empty
	WorktreeRoot string // Cafe override, may be empty
}

// ResolveCounter resolves a cafe ID or a directory path.
// Registered cafes win over directories of the same name.
func ResolveCounter(cafes domain.CafeRepository, git domain.Git, ref string) (*Counter, error) {
	const op = "resolve cafe"
	if ref == "" {
		return nil, domain.NewError(domain.KindNotFound, op, domain.ErrCafeNotFound)
	}

	if cafes != nil {
		cafe, err := cafes.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("get cafe: %w", err)
		}
		if cafe != nil {
			return &Counter{
				Path:         cafe.Path,
				CafeID:       cafe.ID,
				BaseBranch:   cafe.BaseBranch,
				WorktreeRoot: cafe.WorktreeRoot,
			}, nil
		}
	}

	info, err := os.Stat(ref)
	if err != nil || !info.IsDir() {
		return nil, domain.NewError(domain.KindNotFound, op, fmt.Errorf("%w: %s", domain.ErrCafeNotFound, ref))
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	// Plain directories are allowed; worktree creation will reject them.
	if git != nil {
		if root, rootErr := git.RepoRoot(abs); rootErr == nil {
			abs = root
		}
	}
	return &Counter{Path: abs}, nil
}

// WorktreeParams describes a worktree to attach to an order.
type WorktreeParams struct {
	RepoPath   string
	Root       string // Absolute or relative to RepoPath
	Prefix     string // Branch prefix, used when Branch is empty
	Branch     string // Reuse this branch instead of deriving one
	BaseBranch string
}

// AttachWorktree creates a worktree for the order and points PROJECT_ROOT at it.
// The order is not saved.
func AttachWorktree(ctx context.Context, worktrees domain.WorktreeManager, clock domain.Clock, order *domain.Order, p WorktreeParams) error {
	root, err := domain.ResolveWorktreeRoot(p.RepoPath, p.Root)
	if err != nil {
		return err
	}
	branch := p.Branch
	if branch == "" {
		branch = domain.BranchName(p.Prefix, order.ID)
	}

	info, err := worktrees.Create(ctx, domain.CreateWorktreeOptions{
		RepoPath:     p.RepoPath,
		WorktreeRoot: root,
		Branch:       branch,
		BaseBranch:   p.BaseBranch,
	})
	if err != nil {
		return err
	}
	info.Created = clock.Now()
	order.Worktree = info
	order.SetVariable(domain.ProjectRootVar, info.Path)
	return nil
}

// DetachWorktree marks the worktree removed and points PROJECT_ROOT back at the repository.
func DetachWorktree(order *domain.Order) {
	if order.Worktree == nil {
		return
	}
	order.Worktree.MarkRemoved()
	order.SetVariable(domain.ProjectRootVar, order.Counter)
}
