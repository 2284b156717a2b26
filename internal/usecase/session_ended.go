package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
)

// SessionEndedInput contains the parameters for the session-ended callback.
type SessionEndedInput struct {
	OrderID string
	Error   string // Empty when the session succeeded
}

// SessionEndedOutput contains the result of the callback.
type SessionEndedOutput struct {
	Order   *domain.Order // Nil when ignored
	Ignored bool          // The order was gone or no longer running
}

// SessionEnded records the outcome of an engine session.
// It is invoked by the engine when its process exits.
type SessionEnded struct {
	orders   domain.OrderRepository
	baristas domain.BaristaPool
	tracker  domain.SessionTracker
	clock    domain.Clock
	logger   domain.Logger
}

// NewSessionEnded creates a new SessionEnded use case.
func NewSessionEnded(
	orders domain.OrderRepository,
	baristas domain.BaristaPool,
	tracker domain.SessionTracker,
	clock domain.Clock,
	logger domain.Logger,
) *SessionEnded {
	return &SessionEnded{
		orders:   orders,
		baristas: baristas,
		tracker:  tracker,
		clock:    clock,
		logger:   logger,
	}
}

// Execute moves a RUNNING order to COMPLETED or FAILED.
// Orders that were cancelled or deleted in the meantime are left alone.
func (uc *SessionEnded) Execute(_ context.Context, in SessionEndedInput) (*SessionEndedOutput, error) {
	order, err := uc.orders.Get(in.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.Status != domain.StatusRunning {
		return &SessionEndedOutput{Ignored: true}, nil
	}

	if in.Error != "" {
		order.Status = domain.StatusFailed
		order.Error = in.Error
	} else {
		order.Status = domain.StatusCompleted
		order.Error = ""
	}
	order.Ended = uc.clock.Now()

	if uc.tracker != nil {
		uc.tracker.ClearAwaiting(order.ID)
	}
	if uc.baristas != nil {
		uc.baristas.Release(order.ID)
	}
	if err := uc.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	if uc.logger != nil {
		if in.Error != "" {
			uc.logger.Warn(order.ID, "order", "failed: "+in.Error)
		} else {
			uc.logger.Info(order.ID, "order", "completed")
		}
	}
	return &SessionEndedOutput{Order: order}, nil
}
