// Package git provides read-only repository inspection on top of go-git.
package git

import (
	"errors"
	"fmt"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Client implements domain.Git interface.
var _ domain.Git = (*Client)(nil)

// Client inspects repositories by path. It holds no state; each call opens
// the repository fresh so callers may share one Client across cafes.
type Client struct{}

// NewClient creates a new git client.
func NewClient() *Client {
	return &Client{}
}

// open opens the repository containing dir, walking up to find .git.
// Linked worktrees resolve their objects and refs through the common dir.
func open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", dir, domain.ErrNotGitRepository)
		}
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	return repo, nil
}

// RepoRoot returns the top-level directory of the working tree containing dir.
func (c *Client) RepoRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	repo, err := open(abs)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no working tree to place orders in.
		return "", fmt.Errorf("%s: %w", dir, domain.ErrNotGitRepository)
	}
	return filepath.Clean(wt.Filesystem.Root()), nil
}

// CurrentBranch returns the name of the branch HEAD points at.
// Returns an error when HEAD is detached.
func (c *Client) CurrentBranch(repoPath string) (string, error) {
	repo, err := open(repoPath)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("failed to get current branch: HEAD is detached at %s", head.Hash().String()[:7])
	}
	return head.Name().Short(), nil
}

// BranchExists checks if a local branch exists.
func (c *Client) BranchExists(repoPath, branch string) (bool, error) {
	_, err := c.branchRef(repoPath, branch)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check branch existence: %w", err)
	}
	return true, nil
}

// BranchHead returns the commit hash a local branch points at.
func (c *Client) BranchHead(repoPath, branch string) (string, error) {
	ref, err := c.branchRef(repoPath, branch)
	if err != nil {
		return "", fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	return ref.Hash().String(), nil
}

func (c *Client) branchRef(repoPath, branch string) (*plumbing.Reference, error) {
	repo, err := open(repoPath)
	if err != nil {
		return nil, err
	}
	return repo.Reference(plumbing.NewBranchReferenceName(branch), true)
}
