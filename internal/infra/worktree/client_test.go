package worktree

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
)

// setupTestRepo creates a git repository on main with one commit and
// returns it along with a worktree root next to it.
func setupTestRepo(t *testing.T) (repoRoot, worktreeRoot string) {
	t.Helper()

	tmpDir := t.TempDir()
	repoRoot = filepath.Join(tmpDir, "repo")
	worktreeRoot = filepath.Join(tmpDir, "worktrees")
	require.NoError(t, os.MkdirAll(repoRoot, 0o755))

	runGit(t, repoRoot, "init", "-b", "main")
	runGit(t, repoRoot, "config", "user.email", "test@example.com")
	runGit(t, repoRoot, "config", "user.name", "Test User")
	commitFile(t, repoRoot, "README.md", "# Test\n", "Initial commit")

	return repoRoot, worktreeRoot
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, out)
	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", msg)
}

func branchExists(t *testing.T, repo, branch string) bool {
	t.Helper()
	cmd := exec.Command("git", "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repo
	return cmd.Run() == nil
}

func create(t *testing.T, c *Client, repo, root, branch string) *domain.WorktreeInfo {
	t.Helper()
	info, err := c.Create(context.Background(), domain.CreateWorktreeOptions{
		RepoPath:     repo,
		WorktreeRoot: root,
		Branch:       branch,
	})
	require.NoError(t, err)
	return info
}

func TestClient_Create_NewBranch(t *testing.T) {
	// Setup
	repo, root := setupTestRepo(t)
	client := NewClient()

	// Execute
	info := create(t, client, repo, root, "order-1a2b")

	// Assert
	assert.Equal(t, filepath.Join(root, "order-1a2b"), info.Path)
	assert.Equal(t, "order-1a2b", info.Branch)
	assert.Equal(t, "main", info.BaseBranch, "base defaults to the repository HEAD")
	assert.Equal(t, repo, info.RepoPath)
	assert.FileExists(t, filepath.Join(info.Path, "README.md"))
	assert.Equal(t, "order-1a2b", runGit(t, info.Path, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestClient_Create_FromBaseBranch(t *testing.T) {
	repo, root := setupTestRepo(t)
	runGit(t, repo, "checkout", "-b", "develop")
	commitFile(t, repo, "dev.txt", "dev\n", "Develop work")
	runGit(t, repo, "checkout", "main")
	client := NewClient()

	info, err := client.Create(context.Background(), domain.CreateWorktreeOptions{
		RepoPath:     repo,
		WorktreeRoot: root,
		Branch:       "feature/x",
		BaseBranch:   "develop",
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "feature-x"), info.Path)
	assert.Equal(t, "develop", info.BaseBranch)
	assert.FileExists(t, filepath.Join(info.Path, "dev.txt"))
}

func TestClient_Create_ExistingBranch(t *testing.T) {
	repo, root := setupTestRepo(t)
	runGit(t, repo, "branch", "order-keep")
	client := NewClient()

	info := create(t, client, repo, root, "order-keep")

	assert.Equal(t, "order-keep", runGit(t, info.Path, "rev-parse", "--abbrev-ref", "HEAD"))
}

func TestClient_Create_AlreadyExists(t *testing.T) {
	repo, root := setupTestRepo(t)
	client := NewClient()
	create(t, client, repo, root, "order-1")

	_, err := client.Create(context.Background(), domain.CreateWorktreeOptions{RepoPath: repo, WorktreeRoot: root, Branch: "order-1"})

	assert.ErrorIs(t, err, domain.ErrWorktreeExists)
}

func TestClient_Create_OrphanedWorktree(t *testing.T) {
	// The directory was deleted externally while git still has it registered.
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	require.NoError(t, os.RemoveAll(info.Path))

	again := create(t, client, repo, root, "order-1")

	assert.Equal(t, info.Path, again.Path)
	exists, err := client.Exists(again.Path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClient_Remove(t *testing.T) {
	// Setup: a dirty worktree is still removed
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	require.NoError(t, os.WriteFile(filepath.Join(info.Path, "wip.txt"), []byte("wip"), 0o644))

	// Execute
	err := client.Remove(context.Background(), repo, info.Path, info.Branch)

	// Assert
	require.NoError(t, err)
	assert.NoDirExists(t, info.Path)
	assert.False(t, branchExists(t, repo, "order-1"))

	// Removing again is a no-op
	require.NoError(t, client.Remove(context.Background(), repo, info.Path, info.Branch))
}

func TestClient_Remove_KeepsUnmergedBranch(t *testing.T) {
	// Setup
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	commitFile(t, info.Path, "work.txt", "work\n", "Agent work")
	head := runGit(t, info.Path, "rev-parse", "HEAD")

	// Execute
	err := client.Remove(context.Background(), repo, info.Path, info.Branch)

	// Assert
	require.NoError(t, err)
	assert.NoDirExists(t, info.Path)
	require.True(t, branchExists(t, repo, "order-1"))
	assert.Equal(t, head, runGit(t, repo, "rev-parse", "order-1"))
}

func TestClient_RemoveOnly(t *testing.T) {
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")

	require.NoError(t, client.RemoveOnly(context.Background(), repo, info.Path))

	assert.NoDirExists(t, info.Path)
	assert.True(t, branchExists(t, repo, "order-1"), "branch is kept")
}

func TestClient_RemoveOnly_WithUncommittedChanges(t *testing.T) {
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	require.NoError(t, os.WriteFile(filepath.Join(info.Path, "README.md"), []byte("changed"), 0o644))

	err := client.RemoveOnly(context.Background(), repo, info.Path)

	assert.ErrorIs(t, err, domain.ErrUncommittedChanges)
	assert.DirExists(t, info.Path)
}

func TestClient_RetryOnLock(t *testing.T) {
	client := NewClient()
	client.removeBackoff = time.Millisecond

	t.Run("retries lock errors", func(t *testing.T) {
		calls := 0
		err := client.retryOnLock(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("fatal: Unable to create '/repo/.git/index.lock': File exists")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		err := client.retryOnLock(context.Background(), func() error {
			calls++
			return errors.New("worktree is locked")
		})
		assert.Error(t, err)
		assert.Equal(t, defaultRemoveAttempts, calls)
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		err := client.retryOnLock(context.Background(), func() error {
			calls++
			return domain.ErrUncommittedChanges
		})
		assert.ErrorIs(t, err, domain.ErrUncommittedChanges)
		assert.Equal(t, 1, calls)
	})
}

func TestClient_MergeToTarget(t *testing.T) {
	// Setup
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	commitFile(t, info.Path, "feature.txt", "feature\n", "Add feature")

	// Execute
	res, err := client.MergeToTarget(context.Background(), domain.MergeOptions{
		RepoPath:         repo,
		WorktreePath:     info.Path,
		Branch:           info.Branch,
		Target:           "main",
		DeleteAfterMerge: true,
	})

	// Assert
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, runGit(t, repo, "rev-parse", "HEAD"), res.Commit)
	assert.FileExists(t, filepath.Join(repo, "feature.txt"))
	assert.NoDirExists(t, info.Path)
	assert.False(t, branchExists(t, repo, "order-1"))
}

func TestClient_MergeToTarget_CleanupFailureKeepsMerge(t *testing.T) {
	// Setup: a locked worktree cannot be removed after the merge
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	commitFile(t, info.Path, "feature.txt", "feature\n", "Add feature")
	runGit(t, repo, "worktree", "lock", info.Path)

	// Execute
	res, err := client.MergeToTarget(context.Background(), domain.MergeOptions{
		RepoPath:         repo,
		WorktreePath:     info.Path,
		Branch:           info.Branch,
		Target:           "main",
		DeleteAfterMerge: true,
	})

	// Assert
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, runGit(t, repo, "rev-parse", "HEAD"), res.Commit)
	assert.Contains(t, res.CleanupError, "removing worktree")
	assert.FileExists(t, filepath.Join(repo, "feature.txt"))
	assert.DirExists(t, info.Path)
	assert.True(t, branchExists(t, repo, "order-1"))
}

func TestClient_MergeToTarget_SquashKeep(t *testing.T) {
	repo, root := setupTestRepo(t)
	client := NewClient()
	info := create(t, client, repo, root, "order-1")
	commitFile(t, info.Path, "a.txt", "a\n", "A")
	commitFile(t, info.Path, "b.txt", "b\n", "B")
	before := runGit(t, repo, "rev-list", "--count", "HEAD")

	res, err := client.MergeToTarget(context.Background(), domain.MergeOptions{
		RepoPath:     repo,
		WorktreePath: info.Path,
		Branch:       info.Branch,
		Target:       "main",
		Squash:       true,
	})

	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "2", runGit(t, repo, "rev-list", "--count", "HEAD"))
	assert.Equal(t, "1", before)
	assert.DirExists(t, info.Path)
	assert.True(t, branchExists(t, repo, "order-1"))
}

func TestClient_MergeToTarget_Failures(t *testing.T) {
	t.Run("conflict is aborted", func(t *testing.T) {
		repo, root := setupTestRepo(t)
		client := NewClient()
		info := create(t, client, repo, root, "order-1")
		commitFile(t, info.Path, "README.md", "from order\n", "Order change")
		commitFile(t, repo, "README.md", "from main\n", "Main change")
		head := runGit(t, repo, "rev-parse", "HEAD")

		res, err := client.MergeToTarget(context.Background(), domain.MergeOptions{
			RepoPath: repo, WorktreePath: info.Path, Branch: info.Branch, Target: "main", DeleteAfterMerge: true,
		})

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, domain.ErrMergeConflict.Error())
		assert.Equal(t, head, runGit(t, repo, "rev-parse", "HEAD"))
		assert.Empty(t, runGit(t, repo, "status", "--porcelain"))
		assert.DirExists(t, info.Path)
	})

	t.Run("dirty worktree", func(t *testing.T) {
		repo, root := setupTestRepo(t)
		client := NewClient()
		info := create(t, client, repo, root, "order-1")
		require.NoError(t, os.WriteFile(filepath.Join(info.Path, "wip.txt"), []byte("wip"), 0o644))

		res, err := client.MergeToTarget(context.Background(), domain.MergeOptions{
			RepoPath: repo, WorktreePath: info.Path, Branch: info.Branch, Target: "main",
		})

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, domain.ErrUncommittedChanges.Error())
	})

	t.Run("target not checked out", func(t *testing.T) {
		repo, root := setupTestRepo(t)
		client := NewClient()
		info := create(t, client, repo, root, "order-1")

		res, err := client.MergeToTarget(context.Background(), domain.MergeOptions{
			RepoPath: repo, WorktreePath: info.Path, Branch: info.Branch, Target: "release",
		})

		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "not checked out")
	})
}

func TestClient_Exists(t *testing.T) {
	client := NewClient()
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		path string
		want bool
	}{
		{dir, true},
		{filepath.Join(dir, "missing"), false},
		{file, false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := client.Exists(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("/a")
	unlockB := k.Lock("/b") // Different key does not block

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("/a")
		unlock()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second lock on the same key acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlockA()
	<-done
	unlockB()
}
