// Package worktree provides git worktree operations.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Ensure Client implements domain.WorktreeManager interface.
var _ domain.WorktreeManager = (*Client)(nil)

// Default retry policy for transient lock errors on removal.
const (
	defaultRemoveAttempts = 3
	defaultRemoveBackoff  = 200 * time.Millisecond
)

// Client manages git worktrees through the git CLI.
// go-git has no support for linked worktrees or merges, so this package
// shells out like the rest of the worktree tooling does.
type Client struct {
	locks          *keyedMutex
	removeBackoff  time.Duration
	removeAttempts int
}

// NewClient creates a new worktree client.
func NewClient() *Client {
	return &Client{
		locks:          newKeyedMutex(),
		removeAttempts: defaultRemoveAttempts,
		removeBackoff:  defaultRemoveBackoff,
	}
}

// Create creates a worktree for opts.Branch under opts.WorktreeRoot.
// A missing branch is created from opts.BaseBranch (or HEAD when empty);
// an existing branch is checked out as is.
func (c *Client) Create(ctx context.Context, opts domain.CreateWorktreeOptions) (*domain.WorktreeInfo, error) {
	if opts.Branch == "" {
		return nil, errors.New("create worktree: branch is required")
	}
	path := filepath.Join(opts.WorktreeRoot, dirName(opts.Branch))

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorktreeExists, path)
	}
	if err := os.MkdirAll(opts.WorktreeRoot, 0o750); err != nil {
		return nil, fmt.Errorf("create worktree root: %w", err)
	}

	unlock := c.locks.Lock(opts.RepoPath)
	defer unlock()

	base := opts.BaseBranch
	if base == "" {
		current, err := git(ctx, opts.RepoPath, "rev-parse", "--abbrev-ref", "HEAD")
		if err != nil {
			return nil, fmt.Errorf("resolve base branch: %w", err)
		}
		base = current
	}

	branchExists, err := c.branchExists(ctx, opts.RepoPath, opts.Branch)
	if err != nil {
		return nil, err
	}

	var args []string
	if branchExists {
		args = []string{"worktree", "add", path, opts.Branch}
	} else {
		args = []string{"worktree", "add", "-b", opts.Branch, path, base}
	}

	if _, err := git(ctx, opts.RepoPath, args...); err != nil {
		if !strings.Contains(err.Error(), "already registered") {
			return nil, fmt.Errorf("create worktree: %w", err)
		}
		// Registered but the directory is gone: prune stale entries and retry.
		if _, pruneErr := git(ctx, opts.RepoPath, "worktree", "prune"); pruneErr != nil {
			return nil, fmt.Errorf("prune stale worktrees: %w", pruneErr)
		}
		if _, err := git(ctx, opts.RepoPath, args...); err != nil {
			return nil, fmt.Errorf("create worktree after prune: %w", err)
		}
	}

	return &domain.WorktreeInfo{
		Path:       path,
		Branch:     opts.Branch,
		BaseBranch: base,
		RepoPath:   opts.RepoPath,
	}, nil
}

// Remove deletes the worktree directory, discarding local changes, and then
// prunes its branch with "git branch -d". A branch holding unmerged commits
// is kept. Lock contention from concurrent git processes is retried.
func (c *Client) Remove(ctx context.Context, repoPath, worktreePath, branch string) error {
	unlock := c.locks.Lock(repoPath)
	defer unlock()

	if err := c.removeWorktree(ctx, repoPath, worktreePath, true); err != nil {
		return err
	}
	if branch == "" {
		return nil
	}

	exists, err := c.branchExists(ctx, repoPath, branch)
	if err != nil || !exists {
		return err
	}
	err = c.retryOnLock(ctx, func() error {
		_, err := git(ctx, repoPath, "branch", "-d", branch)
		return err
	})
	if err != nil && strings.Contains(err.Error(), "not fully merged") {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete branch %s: %w", branch, err)
	}
	return nil
}

// RemoveOnly deletes the worktree directory and keeps the branch.
// Returns ErrUncommittedChanges if the worktree is dirty.
func (c *Client) RemoveOnly(ctx context.Context, repoPath, worktreePath string) error {
	unlock := c.locks.Lock(repoPath)
	defer unlock()

	return c.removeWorktree(ctx, repoPath, worktreePath, false)
}

func (c *Client) removeWorktree(ctx context.Context, repoPath, worktreePath string, force bool) error {
	if worktreePath == "" {
		return nil
	}
	if _, err := os.Stat(worktreePath); errors.Is(err, os.ErrNotExist) {
		// Directory already gone; drop the stale registration.
		if _, err := git(ctx, repoPath, "worktree", "prune"); err != nil {
			return fmt.Errorf("prune worktrees: %w", err)
		}
		return nil
	}

	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, worktreePath)

	return c.retryOnLock(ctx, func() error {
		_, err := git(ctx, repoPath, args...)
		if err == nil {
			return nil
		}
		msg := err.Error()
		if strings.Contains(msg, "contains modified or untracked files") || strings.Contains(msg, "is dirty") {
			return domain.ErrUncommittedChanges
		}
		return fmt.Errorf("remove worktree: %w", err)
	})
}

// retryOnLock runs fn until it succeeds, fails with a non-lock error, or
// the attempts are exhausted.
func (c *Client) retryOnLock(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.removeAttempts; attempt++ {
		if err = fn(); err == nil || !isLockError(err) {
			return err
		}
		if attempt == c.removeAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.removeBackoff * time.Duration(attempt)):
		}
	}
	return err
}

// isLockError reports whether err comes from another git process holding a lock.
func isLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, ".lock") ||
		strings.Contains(msg, "Unable to create") ||
		strings.Contains(msg, "is locked")
}

// MergeToTarget merges the worktree branch into the target branch, which
// must be checked out in the main repository. Merges into one repository
// are serialized. Conflicts are aborted and reported as an unsuccessful result.
func (c *Client) MergeToTarget(ctx context.Context, opts domain.MergeOptions) (*domain.MergeResult, error) {
	unlock := c.locks.Lock(opts.RepoPath)
	defer unlock()

	if opts.WorktreePath != "" {
		dirty, err := hasChanges(ctx, opts.WorktreePath)
		if err != nil {
			return nil, err
		}
		if dirty {
			return failed("%v in %s", domain.ErrUncommittedChanges, opts.WorktreePath), nil
		}
	}

	current, err := git(ctx, opts.RepoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve current branch: %w", err)
	}
	if current != opts.Target {
		return failed("target branch %s is not checked out in %s (current: %s)", opts.Target, opts.RepoPath, current), nil
	}
	dirty, err := hasChanges(ctx, opts.RepoPath)
	if err != nil {
		return nil, err
	}
	if dirty {
		return failed("%v in %s", domain.ErrUncommittedChanges, opts.RepoPath), nil
	}

	if opts.Squash {
		if _, err := git(ctx, opts.RepoPath, "merge", "--squash", opts.Branch); err != nil {
			_, _ = git(ctx, opts.RepoPath, "reset", "--merge")
			return failed("%v: %v", domain.ErrMergeConflict, err), nil
		}
		if _, err := git(ctx, opts.RepoPath, "commit", "-m", "Squash merge "+opts.Branch); err != nil {
			_, _ = git(ctx, opts.RepoPath, "reset", "--merge")
			return failed("commit squash merge: %v", err), nil
		}
	} else {
		if _, err := git(ctx, opts.RepoPath, "merge", "--no-ff", "-m", "Merge "+opts.Branch, opts.Branch); err != nil {
			_, _ = git(ctx, opts.RepoPath, "merge", "--abort")
			return failed("%v: %v", domain.ErrMergeConflict, err), nil
		}
	}

	commit, err := git(ctx, opts.RepoPath, "rev-parse", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("resolve merge commit: %w", err)
	}

	res := &domain.MergeResult{Success: true, Commit: commit}
	if opts.DeleteAfterMerge {
		if err := c.removeWorktree(ctx, opts.RepoPath, opts.WorktreePath, true); err != nil {
			res.CleanupError = fmt.Sprintf("removing worktree: %v", err)
			return res, nil
		}
		if _, err := git(ctx, opts.RepoPath, "branch", "-D", opts.Branch); err != nil {
			res.CleanupError = fmt.Sprintf("deleting branch %s: %v", opts.Branch, err)
		}
	}

	return res, nil
}

// Exists checks if the worktree directory is present on disk.
func (c *Client) Exists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("check worktree directory: %w", err)
	}
	return info.IsDir(), nil
}

func (c *Client) branchExists(ctx context.Context, repoPath, branch string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoPath
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	// Exit code 1 means branch doesn't exist
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return false, nil
	}
	return false, fmt.Errorf("check branch exists: %w", err)
}

func hasChanges(ctx context.Context, dir string) (bool, error) {
	out, err := git(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("check uncommitted changes: %w", err)
	}
	return out != "", nil
}

func failed(format string, args ...any) *domain.MergeResult {
	return &domain.MergeResult{Message: fmt.Sprintf(format, args...)}
}

// git runs a git command in dir and returns its trimmed stdout.
// The error carries git's combined output for diagnostics.
func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// dirName turns a branch name into a single path element.
func dirName(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}

// keyedMutex serializes work per key (repository path).
type keyedMutex struct {
	locks map[string]*sync.Mutex
	mu    sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
