// Package shared contains helpers used by several use cases.
package shared

import (
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
)

// GetOrder retrieves an order by ID and returns domain.ErrOrderNotFound if not found.
// This centralizes the common pattern of:
//
//	order, err := repo.Get(orderID)
//	if err != nil { return nil, fmt.Errorf("get order: %w", err) }
//	if order == nil { return nil, domain.ErrOrderNotFound }
func GetOrder(repo domain.OrderRepository, orderID string) (*domain.Order, error) {
	order, err := repo.Get(orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return order, nil
}

// RequireWorktree returns the order's worktree or a precondition error.
func RequireWorktree(order *domain.Order, op string) (*domain.WorktreeInfo, error) {
	if order.Worktree == nil {
		return nil, domain.NewError(domain.KindPreconditionFailed, op, domain.ErrNoWorktree)
	}
	if order.Worktree.Removed || order.Worktree.Path == "" {
		return nil, domain.NewError(domain.KindPreconditionFailed, op, domain.ErrWorktreeRemoved)
	}
	return order.Worktree, nil
}
