package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// CleanupWorktreeInput contains the parameters for removing an order's worktree only.
type CleanupWorktreeInput struct {
	OrderID string
}

// CleanupWorktreeOutput contains the result of a cleanup.
type CleanupWorktreeOutput struct {
	Order *domain.Order
}

// CleanupWorktree removes an order's working directory but keeps its branch.
type CleanupWorktree struct {
	orders    domain.OrderRepository
	worktrees domain.WorktreeManager
	logger    domain.Logger
}

// NewCleanupWorktree creates a new CleanupWorktree use case.
func NewCleanupWorktree(orders domain.OrderRepository, worktrees domain.WorktreeManager, logger domain.Logger) *CleanupWorktree {
	return &CleanupWorktree{
		orders:    orders,
		worktrees: worktrees,
		logger:    logger,
	}
}

// Execute removes the worktree directory and marks it removed.
// Nothing is mutated if the order or its worktree is missing.
func (uc *CleanupWorktree) Execute(ctx context.Context, in CleanupWorktreeInput) (*CleanupWorktreeOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	wt, err := shared.RequireWorktree(order, "cleanup worktree")
	if err != nil {
		return nil, err
	}

	path := wt.Path
	if err := uc.worktrees.RemoveOnly(ctx, wt.RepoPath, path); err != nil {
		return nil, domain.NewError(domain.KindWorktreeRemovalFailed, "remove worktree "+path, err)
	}

	shared.DetachWorktree(order)
	if err := uc.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(order.ID, "worktree", fmt.Sprintf("cleaned up %s, branch %s kept", path, wt.Branch))
	}
	return &CleanupWorktreeOutput{Order: order}, nil
}

// MergeWorktreeInput contains the parameters for merging an order's worktree.
type MergeWorktreeInput struct {
	OrderID string
	Target  string // Target branch (empty = [merge] target)
	Squash  bool   // Squash merge (also enabled by [merge] squash)
	Keep    bool   // Keep the worktree even if [merge] delete is set
}

// MergeWorktreeOutput contains the result of a merge.
type MergeWorktreeOutput struct {
	Order   *domain.Order
	Target  string
	Commit  string
	Warning string // Set when the merge landed but worktree cleanup failed
}

// MergeWorktree merges an order's branch into a target branch.
type MergeWorktree struct {
	orders    domain.OrderRepository
	worktrees domain.WorktreeManager
	logger    domain.Logger
	config    *domain.Config
}

// NewMergeWorktree creates a new MergeWorktree use case.
func NewMergeWorktree(orders domain.OrderRepository, worktrees domain.WorktreeManager, logger domain.Logger, config *domain.Config) *MergeWorktree {
	return &MergeWorktree{
		orders:    orders,
		worktrees: worktrees,
		logger:    logger,
		config:    config,
	}
}

// Execute merges the worktree branch. A failed merge leaves the order untouched.
func (uc *MergeWorktree) Execute(ctx context.Context, in MergeWorktreeInput) (*MergeWorktreeOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	wt, err := shared.RequireWorktree(order, "merge worktree")
	if err != nil {
		return nil, err
	}

	target := firstNonEmpty(in.Target, uc.config.Merge.Target, domain.DefaultMergeTarget)
	deleteAfter := uc.config.Merge.Delete && !in.Keep

	res, err := uc.worktrees.MergeToTarget(ctx, domain.MergeOptions{
		RepoPath:         wt.RepoPath,
		WorktreePath:     wt.Path,
		Branch:           wt.Branch,
		Target:           target,
		Squash:           in.Squash || uc.config.Merge.Squash,
		DeleteAfterMerge: deleteAfter,
	})
	if err != nil {
		return nil, fmt.Errorf("merge %s into %s: %w", wt.Branch, target, err)
	}
	if !res.Success {
		if uc.logger != nil {
			uc.logger.Warn(order.ID, "worktree", fmt.Sprintf("merge into %s failed: %s", target, res.Message))
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrMergeFailed, res.Message)
	}

	wt.MarkMerged(target, res.Commit)
	var warning string
	if res.CleanupError != "" {
		warning = domain.NewError(domain.KindWorktreeRemovalFailed, "clean up merged worktree "+wt.Path, errors.New(res.CleanupError)).Error()
		if uc.logger != nil {
			uc.logger.Warn(order.ID, "worktree", warning)
		}
	}
	if deleteAfter && uc.worktreeGone(res, wt.Path) {
		shared.DetachWorktree(order)
	}
	if err := uc.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(order.ID, "worktree", fmt.Sprintf("merged %s into %s at %s", wt.Branch, target, res.Commit))
	}
	return &MergeWorktreeOutput{Order: order, Target: target, Commit: res.Commit, Warning: warning}, nil
}

// worktreeGone reports whether a merge with cleanup left no directory behind.
// A failed cleanup may still have removed it before the branch step failed.
func (uc *MergeWorktree) worktreeGone(res *domain.MergeResult, path string) bool {
	if res.CleanupError == "" {
		return true
	}
	exists, err := uc.worktrees.Exists(path)
	return err == nil && !exists
}

// RetryWorktreeInput contains the parameters for recreating a lost worktree.
type RetryWorktreeInput struct {
	OrderID string
}

// RetryWorktreeOutput contains the result of a worktree retry.
type RetryWorktreeOutput struct {
	Order         *domain.Order
	AlreadyExists bool // The recorded worktree is still on disk; nothing was done
}

// RetryWorktree recreates the worktree of an order that lost it.
type RetryWorktree struct {
	orders    domain.OrderRepository
	cafes     domain.CafeRepository
	worktrees domain.WorktreeManager
	clock     domain.Clock
	logger    domain.Logger
	config    *domain.Config
}

// NewRetryWorktree creates a new RetryWorktree use case.
func NewRetryWorktree(
	orders domain.OrderRepository,
	cafes domain.CafeRepository,
	worktrees domain.WorktreeManager,
	clock domain.Clock,
	logger domain.Logger,
	config *domain.Config,
) *RetryWorktree {
	return &RetryWorktree{
		orders:    orders,
		cafes:     cafes,
		worktrees: worktrees,
		clock:     clock,
		logger:    logger,
		config:    config,
	}
}

// Execute is a no-op when the worktree exists on disk; otherwise it creates
// one the same way order creation does. The order already exists, so there
// is no rollback.
func (uc *RetryWorktree) Execute(ctx context.Context, in RetryWorktreeInput) (*RetryWorktreeOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}

	if order.HasActiveWorktree() && order.Worktree.Path != "" {
		exists, err := uc.worktrees.Exists(order.Worktree.Path)
		if err != nil {
			return nil, fmt.Errorf("check worktree: %w", err)
		}
		if exists {
			return &RetryWorktreeOutput{Order: order, AlreadyExists: true}, nil
		}
	}

	params := shared.WorktreeParams{
		RepoPath:   order.Counter,
		Root:       uc.config.Worktree.Root,
		Prefix:     uc.config.Worktree.Prefix,
		BaseBranch: uc.config.Worktree.BaseBranch,
	}
	if order.CafeID != "" && uc.cafes != nil {
		if cafe, err := uc.cafes.Get(order.CafeID); err == nil && cafe != nil {
			params.Root = firstNonEmpty(cafe.WorktreeRoot, params.Root)
			params.BaseBranch = firstNonEmpty(cafe.BaseBranch, params.BaseBranch)
		}
	}
	if prev := order.Worktree; prev != nil {
		// Reuse the branch so earlier commits are picked up again.
		params.Branch = prev.Branch
		params.BaseBranch = firstNonEmpty(prev.BaseBranch, params.BaseBranch)
	}

	if err := shared.AttachWorktree(ctx, uc.worktrees, uc.clock, order, params); err != nil {
		return nil, domain.NewError(domain.KindWorktreeCreationFailed, "create worktree", err)
	}
	if err := uc.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(order.ID, "worktree", "recreated "+order.Worktree.Path)
	}
	return &RetryWorktreeOutput{Order: order}, nil
}
