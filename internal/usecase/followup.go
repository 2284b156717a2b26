package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// FollowupInput contains the parameters shared by the followup use cases.
type FollowupInput struct {
	OrderID string
	Prompt  string // Only used by ExecuteFollowup
}

// FollowupOutput contains the result of a followup operation.
type FollowupOutput struct {
	Order *domain.Order
}

// FollowupAction selects which followup step to run.
type FollowupAction int

const (
	FollowupEnter FollowupAction = iota
	FollowupExecute
	FollowupFinish
)

func (a FollowupAction) String() string {
	switch a {
	case FollowupEnter:
		return "enter followup"
	case FollowupExecute:
		return "execute followup"
	case FollowupFinish:
		return "finish followup"
	}
	return "followup"
}

// Followup runs one step of a followup conversation on a completed order.
// The engine session is restored first when the process is gone.
type Followup struct {
	orders   domain.OrderRepository
	engines  domain.EngineProvider
	baristas domain.BaristaPool
	logger   domain.Logger
	action   FollowupAction
}

// NewFollowup creates a followup use case for action.
func NewFollowup(
	orders domain.OrderRepository,
	engines domain.EngineProvider,
	baristas domain.BaristaPool,
	logger domain.Logger,
	action FollowupAction,
) *Followup {
	return &Followup{
		orders:   orders,
		engines:  engines,
		baristas: baristas,
		logger:   logger,
		action:   action,
	}
}

// Execute restores the session if needed and delegates to the engine.
// On a failed restore the engine is never called.
func (uc *Followup) Execute(ctx context.Context, in FollowupInput) (*FollowupOutput, error) {
	prompt := ""
	if uc.action == FollowupExecute {
		p, err := shared.ValidateMessage(in.Prompt)
		if err != nil {
			return nil, err
		}
		prompt = p
	}

	engine, err := shared.ResolveEngine(uc.engines)
	if err != nil {
		return nil, err
	}
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}

	previous := order.BaristaID
	if err := shared.EnsureSession(ctx, engine, uc.baristas, order); err != nil {
		if uc.logger != nil {
			uc.logger.Warn(order.ID, "followup", err.Error())
		}
		return nil, err
	}
	if order.BaristaID != previous {
		if err := uc.orders.Save(order); err != nil {
			return nil, fmt.Errorf("save order: %w", err)
		}
	}

	switch uc.action {
	case FollowupEnter:
		err = engine.EnterFollowup(ctx, order.ID)
	case FollowupExecute:
		err = engine.ExecuteFollowup(ctx, order.ID, prompt)
	case FollowupFinish:
		err = engine.FinishFollowup(ctx, order.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", uc.action, err)
	}

	if uc.action == FollowupFinish && uc.baristas != nil {
		uc.baristas.Release(order.ID)
	}
	if uc.logger != nil {
		uc.logger.Info(order.ID, "followup", uc.action.String())
	}
	return &FollowupOutput{Order: order}, nil
}
