package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
)

// ResolveEngine looks up the execution engine.
// A missing engine is surfaced as ENGINE_NOT_INITIALIZED and never retried.
func ResolveEngine(engines domain.EngineProvider) (domain.Engine, error) {
	if engines == nil {
		return nil, domain.NewError(domain.KindEngineNotInitialized, "resolve engine", domain.ErrEngineNotInitialized)
	}
	engine, err := engines.Engine()
	if err != nil {
		return nil, domain.NewError(domain.KindEngineNotInitialized, "resolve engine", err)
	}
	if engine == nil {
		return nil, domain.NewError(domain.KindEngineNotInitialized, "resolve engine", domain.ErrEngineNotInitialized)
	}
	return engine, nil
}

// CancelBestEffort cancels the order's execution if any.
// Nothing-to-cancel is swallowed; other failures are logged, never returned.
func CancelBestEffort(ctx context.Context, engines domain.EngineProvider, logger domain.Logger, orderID string) {
	if engines == nil {
		return
	}
	engine, err := engines.Engine()
	if err != nil || engine == nil {
		return
	}
	if err := engine.Cancel(ctx, orderID); err != nil && !errors.Is(err, domain.ErrNoSession) {
		if logger != nil {
			logger.Warn(orderID, "engine", fmt.Sprintf("cancel failed: %v", err))
		}
	}
}

// AssignBarista binds an idle barista for the order's provider, creating one if needed.
func AssignBarista(baristas domain.BaristaPool, order *domain.Order) (*domain.Barista, error) {
	barista := baristas.FindAvailable(order.Provider)
	if barista == nil {
		var err error
		barista, err = baristas.Create(order.Provider)
		if err != nil {
			return nil, fmt.Errorf("create barista: %w", err)
		}
	}
	if err := baristas.Assign(barista.ID, order.ID); err != nil {
		return nil, fmt.Errorf("assign barista: %w", err)
	}
	order.BaristaID = barista.ID
	return barista, nil
}

// EnsureSession makes sure a live session exists for a followup.
//
// Preconditions are checked in order, before any restore is attempted:
//  1. A live session already exists: done.
//  2. The order is COMPLETED.
//  3. The order still has a worktree that was not removed.
//
// It then binds a barista for the order's provider and restores the engine
// session scoped to the worktree. The order's BaristaID is updated; the
// caller persists it.
func EnsureSession(ctx context.Context, engine domain.Engine, baristas domain.BaristaPool, order *domain.Order) error {
	const op = "ensure session"

	if engine.HasSession(order.ID) {
		return nil
	}
	if order.Status != domain.StatusCompleted {
		return domain.NewError(domain.KindPreconditionFailed, op,
			fmt.Errorf("%w (status %s)", domain.ErrNotCompleted, order.Status))
	}
	wt, err := RequireWorktree(order, op)
	if err != nil {
		return err
	}

	previous := order.BaristaID
	barista, err := AssignBarista(baristas, order)
	if err != nil {
		return domain.NewError(domain.KindSessionRestoreFailed, op, err)
	}
	if err := engine.RestoreSessionForFollowup(ctx, order, barista, order.RepoRef(), wt.Path); err != nil {
		baristas.Release(order.ID)
		order.BaristaID = previous
		return domain.NewError(domain.KindSessionRestoreFailed, op, err)
	}
	return nil
}
