package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// RetryOrderInput contains the parameters for retrying an order.
type RetryOrderInput struct {
	OrderID         string
	StageID         string // Retry from this stage (empty = first failed stage)
	FromBeginning   bool   // Rerun the whole recipe
	PreserveContext bool   // Keep the provider conversation on a full rerun
}

// RetryOrderOutput contains the result of a retry.
type RetryOrderOutput struct {
	Order *domain.Order
}

// RetryOrder reopens a terminal order and reruns it from a stage or from the beginning.
type RetryOrder struct {
	start    *StartOrder
	orders   domain.OrderRepository
	baristas domain.BaristaPool
	clock    domain.Clock
	logger   domain.Logger
}

// NewRetryOrder creates a new RetryOrder use case.
func NewRetryOrder(
	start *StartOrder,
	orders domain.OrderRepository,
	baristas domain.BaristaPool,
	clock domain.Clock,
	logger domain.Logger,
) *RetryOrder {
	return &RetryOrder{
		start:    start,
		orders:   orders,
		baristas: baristas,
		clock:    clock,
		logger:   logger,
	}
}

// Execute retries the order.
func (uc *RetryOrder) Execute(ctx context.Context, in RetryOrderInput) (*RetryOrderOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.IsTerminal() {
		return nil, domain.NewError(domain.KindPreconditionFailed, "retry order",
			fmt.Errorf("%w: order is %s", domain.ErrNothingToRetry, order.Status))
	}

	started, err := uc.start.Execute(ctx, StartOrderInput{OrderID: order.ID})
	if err != nil {
		return nil, err
	}
	order = started.Order

	if in.FromBeginning {
		err = started.Engine.RetryFromBeginning(ctx, order, in.PreserveContext)
	} else {
		err = started.Engine.RetryFromStage(ctx, order, in.StageID)
	}
	if err != nil {
		markFailed(uc.orders, uc.baristas, uc.clock, uc.logger, order, err)
		return nil, fmt.Errorf("retry order: %w", err)
	}

	if uc.logger != nil {
		from := "beginning"
		if !in.FromBeginning {
			from = firstNonEmpty(in.StageID, "first failed stage")
		}
		uc.logger.Info(order.ID, "order", "retrying from "+from)
	}
	return &RetryOrderOutput{Order: order}, nil
}

// GetRetryOptionsInput contains the parameters for querying retry points.
type GetRetryOptionsInput struct {
	OrderID string
}

// GetRetryOptionsOutput contains the retry points of an order.
type GetRetryOptionsOutput struct {
	Options *domain.RetryOptions
}

// GetRetryOptions reports what an order can be retried from.
type GetRetryOptions struct {
	orders  domain.OrderRepository
	engines domain.EngineProvider
}

// NewGetRetryOptions creates a new GetRetryOptions use case.
func NewGetRetryOptions(orders domain.OrderRepository, engines domain.EngineProvider) *GetRetryOptions {
	return &GetRetryOptions{orders: orders, engines: engines}
}

// Execute queries the engine.
func (uc *GetRetryOptions) Execute(ctx context.Context, in GetRetryOptionsInput) (*GetRetryOptionsOutput, error) {
	engine, err := shared.ResolveEngine(uc.engines)
	if err != nil {
		return nil, err
	}
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	opts, err := engine.GetRetryOptions(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("get retry options: %w", err)
	}
	return &GetRetryOptionsOutput{Options: opts}, nil
}
