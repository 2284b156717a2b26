package usecase

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// DeleteOrderInput contains the parameters for deleting an order.
type DeleteOrderInput struct {
	OrderID string
}

// DeleteOrderOutput contains the result of deleting an order.
type DeleteOrderOutput struct {
	WorktreeError error // Non-fatal worktree removal failure, if any
}

// DeleteOrder is the use case for deleting an order and releasing its worktree.
type DeleteOrder struct {
	orders      domain.OrderRepository
	worktrees   domain.WorktreeManager
	engines     domain.EngineProvider
	baristas    domain.BaristaPool
	transcripts domain.TranscriptStore
	logger      domain.Logger
}

// NewDeleteOrder creates a new DeleteOrder use case.
func NewDeleteOrder(
	orders domain.OrderRepository,
	worktrees domain.WorktreeManager,
	engines domain.EngineProvider,
	baristas domain.BaristaPool,
	transcripts domain.TranscriptStore,
	logger domain.Logger,
) *DeleteOrder {
	return &DeleteOrder{
		orders:      orders,
		worktrees:   worktrees,
		engines:     engines,
		baristas:    baristas,
		transcripts: transcripts,
		logger:      logger,
	}
}

// Execute cancels the order, removes its worktree and deletes the record.
// A worktree removal failure is logged and returned in the output; it never
// blocks the deletion.
func (uc *DeleteOrder) Execute(ctx context.Context, in DeleteOrderInput) (*DeleteOrderOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}

	wtErr := releaseWorktree(ctx, uc.worktrees, uc.engines, uc.logger, order)

	if err := uc.orders.Delete(order.ID); err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}
	forgetOrder(uc.baristas, uc.transcripts, uc.logger, order.ID)

	return &DeleteOrderOutput{WorktreeError: wtErr}, nil
}

// DeleteOrdersInput contains the parameters for a batch deletion.
type DeleteOrdersInput struct {
	OrderIDs []string
}

// DeleteOrdersOutput partitions the requested IDs.
type DeleteOrdersOutput struct {
	Errors  map[string]error // Cause per failed ID
	Deleted []string
	Failed  []string
}

// DeleteOrders is the use case for deleting several orders at once.
type DeleteOrders struct {
	orders      domain.OrderRepository
	worktrees   domain.WorktreeManager
	engines     domain.EngineProvider
	baristas    domain.BaristaPool
	transcripts domain.TranscriptStore
	logger      domain.Logger
}

// NewDeleteOrders creates a new DeleteOrders use case.
func NewDeleteOrders(
	orders domain.OrderRepository,
	worktrees domain.WorktreeManager,
	engines domain.EngineProvider,
	baristas domain.BaristaPool,
	transcripts domain.TranscriptStore,
	logger domain.Logger,
) *DeleteOrders {
	return &DeleteOrders{
		orders:      orders,
		worktrees:   worktrees,
		engines:     engines,
		baristas:    baristas,
		transcripts: transcripts,
		logger:      logger,
	}
}

// Execute releases all worktrees concurrently, then deletes the records.
// One order's failure never prevents the others from completing.
func (uc *DeleteOrders) Execute(ctx context.Context, in DeleteOrdersInput) (*DeleteOrdersOutput, error) {
	out := &DeleteOrdersOutput{Errors: make(map[string]error)}

	found := make([]*domain.Order, 0, len(in.OrderIDs))
	seen := make([]string, 0, len(in.OrderIDs))
	for _, id := range in.OrderIDs {
		if slices.Contains(seen, id) {
			continue
		}
		seen = append(seen, id)
		order, err := shared.GetOrder(uc.orders, id)
		if err != nil {
			out.Failed = append(out.Failed, id)
			out.Errors[id] = err
			continue
		}
		found = append(found, order)
	}

	// Every branch returns nil so a failing removal never cancels its siblings.
	var g errgroup.Group
	for _, order := range found {
		g.Go(func() error {
			_ = releaseWorktree(ctx, uc.worktrees, uc.engines, uc.logger, order)
			return nil
		})
	}
	_ = g.Wait()

	for _, order := range found {
		if err := uc.orders.Delete(order.ID); err != nil {
			out.Failed = append(out.Failed, order.ID)
			out.Errors[order.ID] = fmt.Errorf("delete order: %w", err)
			continue
		}
		forgetOrder(uc.baristas, uc.transcripts, uc.logger, order.ID)
		out.Deleted = append(out.Deleted, order.ID)
	}
	return out, nil
}

// releaseWorktree cancels any execution and removes the order's worktree.
// The returned error is informational: it has already been logged.
func releaseWorktree(ctx context.Context, worktrees domain.WorktreeManager, engines domain.EngineProvider, logger domain.Logger, order *domain.Order) error {
	shared.CancelBestEffort(ctx, engines, logger, order.ID)
	if !order.HasActiveWorktree() {
		return nil
	}
	wt := order.Worktree
	if err := worktrees.Remove(ctx, wt.RepoPath, wt.Path, wt.Branch); err != nil {
		wrapped := domain.NewError(domain.KindWorktreeRemovalFailed, "remove worktree "+wt.Path, err)
		if logger != nil {
			logger.Warn(order.ID, "worktree", wrapped.Error())
		}
		return wrapped
	}
	if logger != nil {
		logger.Info(order.ID, "worktree", "removed "+wt.Path)
	}
	return nil
}

// forgetOrder drops per-order side state after the record is gone.
func forgetOrder(baristas domain.BaristaPool, transcripts domain.TranscriptStore, logger domain.Logger, orderID string) {
	if baristas != nil {
		baristas.Release(orderID)
	}
	if transcripts != nil {
		if err := transcripts.Remove(orderID); err != nil && logger != nil {
			logger.Warn(orderID, "order", fmt.Sprintf("remove transcript: %v", err))
		}
	}
	if logger != nil {
		logger.Info(orderID, "order", "deleted")
	}
}
