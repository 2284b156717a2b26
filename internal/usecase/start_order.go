package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// StartOrderInput contains the parameters for starting an order.
type StartOrderInput struct {
	OrderID string
}

// StartOrderOutput contains the result of starting an order.
type StartOrderOutput struct {
	Order  *domain.Order
	Engine domain.Engine // The engine the session was opened on
}

// StartOrder moves an order to RUNNING and opens its engine session.
// Terminal orders are reopened first, which is how retries begin.
type StartOrder struct {
	orders   domain.OrderRepository
	engines  domain.EngineProvider
	baristas domain.BaristaPool
	clock    domain.Clock
	logger   domain.Logger
}

// NewStartOrder creates a new StartOrder use case.
func NewStartOrder(
	orders domain.OrderRepository,
	engines domain.EngineProvider,
	baristas domain.BaristaPool,
	clock domain.Clock,
	logger domain.Logger,
) *StartOrder {
	return &StartOrder{
		orders:   orders,
		engines:  engines,
		baristas: baristas,
		clock:    clock,
		logger:   logger,
	}
}

// Execute starts the order.
func (uc *StartOrder) Execute(ctx context.Context, in StartOrderInput) (*StartOrderOutput, error) {
	engine, err := shared.ResolveEngine(uc.engines)
	if err != nil {
		return nil, err
	}

	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanStart() {
		return nil, domain.NewError(domain.KindPreconditionFailed, "start order",
			fmt.Errorf("%w: %s", domain.ErrNotStartable, order.Status))
	}

	if order.Status.IsTerminal() {
		order.Status = domain.StatusPending
		order.Error = ""
		order.Ended = time.Time{}
	}

	if _, err := shared.AssignBarista(uc.baristas, order); err != nil {
		return nil, err
	}

	order.Status = domain.StatusRunning
	order.Started = uc.clock.Now()
	if err := uc.orders.Save(order); err != nil {
		uc.baristas.Release(order.ID)
		return nil, fmt.Errorf("save order: %w", err)
	}

	if err := engine.StartOrder(ctx, order); err != nil {
		markFailed(uc.orders, uc.baristas, uc.clock, uc.logger, order, err)
		return nil, fmt.Errorf("start session: %w", err)
	}

	if uc.logger != nil {
		uc.logger.Info(order.ID, "order", fmt.Sprintf("started with barista %s", order.BaristaID))
	}
	return &StartOrderOutput{Order: order, Engine: engine}, nil
}

// markFailed records an engine failure on a running order.
// Persistence failures are logged; the caller returns the engine error.
func markFailed(orders domain.OrderRepository, baristas domain.BaristaPool, clock domain.Clock, logger domain.Logger, order *domain.Order, cause error) {
	order.Status = domain.StatusFailed
	order.Error = cause.Error()
	order.Ended = clock.Now()
	if baristas != nil {
		baristas.Release(order.ID)
	}
	if err := orders.Save(order); err != nil && logger != nil {
		logger.Error(order.ID, "order", fmt.Sprintf("save failed status: %v", err))
	}
	if logger != nil {
		logger.Error(order.ID, "engine", cause.Error())
	}
}

// ExecuteOrderInput contains the parameters for running an order.
type ExecuteOrderInput struct {
	Variables map[string]string // Extra variables for this run
	OrderID   string
	Prompt    string // Overrides the order's prompt for this run
}

// ExecuteOrderOutput contains the result of running an order.
type ExecuteOrderOutput struct {
	Order *domain.Order
}

// ExecuteOrder starts an order and hands its request to the engine.
type ExecuteOrder struct {
	start    *StartOrder
	orders   domain.OrderRepository
	baristas domain.BaristaPool
	clock    domain.Clock
	logger   domain.Logger
}

// NewExecuteOrder creates a new ExecuteOrder use case.
func NewExecuteOrder(
	start *StartOrder,
	orders domain.OrderRepository,
	baristas domain.BaristaPool,
	clock domain.Clock,
	logger domain.Logger,
) *ExecuteOrder {
	return &ExecuteOrder{
		start:    start,
		orders:   orders,
		baristas: baristas,
		clock:    clock,
		logger:   logger,
	}
}

// Execute runs the order's recipe.
func (uc *ExecuteOrder) Execute(ctx context.Context, in ExecuteOrderInput) (*ExecuteOrderOutput, error) {
	if err := shared.ValidateVariables(in.Variables); err != nil {
		return nil, err
	}

	started, err := uc.start.Execute(ctx, StartOrderInput{OrderID: in.OrderID})
	if err != nil {
		return nil, err
	}
	order := started.Order

	if len(in.Variables) > 0 {
		order.MergeVariables(in.Variables)
		if err := uc.orders.Save(order); err != nil {
			return nil, fmt.Errorf("save order: %w", err)
		}
	}

	opts := domain.ExecuteOptions{
		Prompt:    firstNonEmpty(in.Prompt, order.Prompt),
		Variables: order.Variables,
	}
	if err := started.Engine.Execute(ctx, order, opts); err != nil {
		markFailed(uc.orders, uc.baristas, uc.clock, uc.logger, order, err)
		return nil, fmt.Errorf("execute order: %w", err)
	}
	return &ExecuteOrderOutput{Order: order}, nil
}

// CancelOrderInput contains the parameters for cancelling an order.
type CancelOrderInput struct {
	OrderID string
}

// CancelOrderOutput contains the result of cancelling an order.
type CancelOrderOutput struct {
	Order *domain.Order
}

// CancelOrder stops an order's execution and marks it CANCELLED.
type CancelOrder struct {
	orders   domain.OrderRepository
	engines  domain.EngineProvider
	baristas domain.BaristaPool
	tracker  domain.SessionTracker
	clock    domain.Clock
	logger   domain.Logger
}

// NewCancelOrder creates a new CancelOrder use case.
func NewCancelOrder(
	orders domain.OrderRepository,
	engines domain.EngineProvider,
	baristas domain.BaristaPool,
	tracker domain.SessionTracker,
	clock domain.Clock,
	logger domain.Logger,
) *CancelOrder {
	return &CancelOrder{
		orders:   orders,
		engines:  engines,
		baristas: baristas,
		tracker:  tracker,
		clock:    clock,
		logger:   logger,
	}
}

// Execute cancels the order. An engine with nothing to cancel is not an error.
func (uc *CancelOrder) Execute(ctx context.Context, in CancelOrderInput) (*CancelOrderOutput, error) {
	engine, err := shared.ResolveEngine(uc.engines)
	if err != nil {
		return nil, err
	}
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanCancel() {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, domain.StatusCancelled)
	}

	if err := engine.Cancel(ctx, order.ID); err != nil && !isNoSession(err) {
		return nil, fmt.Errorf("cancel session: %w", err)
	}

	order.Status = domain.StatusCancelled
	order.Ended = uc.clock.Now()
	if uc.tracker != nil {
		uc.tracker.ClearAwaiting(order.ID)
	}
	uc.baristas.Release(order.ID)
	if err := uc.orders.Save(order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	if uc.logger != nil {
		uc.logger.Info(order.ID, "order", "cancelled")
	}
	return &CancelOrderOutput{Order: order}, nil
}

// SendInputInput contains the parameters for sending input to a session.
type SendInputInput struct {
	OrderID string
	Message string
}

// SendInputOutput contains the result of sending input.
type SendInputOutput struct{}

// SendInput forwards user input to a running order and clears its awaiting flag.
type SendInput struct {
	orders  domain.OrderRepository
	engines domain.EngineProvider
	tracker domain.SessionTracker
	logger  domain.Logger
}

// NewSendInput creates a new SendInput use case.
func NewSendInput(orders domain.OrderRepository, engines domain.EngineProvider, tracker domain.SessionTracker, logger domain.Logger) *SendInput {
	return &SendInput{
		orders:  orders,
		engines: engines,
		tracker: tracker,
		logger:  logger,
	}
}

// Execute sends the message.
func (uc *SendInput) Execute(ctx context.Context, in SendInputInput) (*SendInputOutput, error) {
	message, err := shared.ValidateMessage(in.Message)
	if err != nil {
		return nil, err
	}
	engine, err := shared.ResolveEngine(uc.engines)
	if err != nil {
		return nil, err
	}
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusRunning {
		return nil, domain.NewError(domain.KindPreconditionFailed, "send input",
			fmt.Errorf("%w: order is %s", domain.ErrNoSession, order.Status))
	}

	if err := engine.SendInput(ctx, order.ID, message); err != nil {
		return nil, fmt.Errorf("send input: %w", err)
	}
	if uc.tracker != nil {
		uc.tracker.ClearAwaiting(order.ID)
	}
	if uc.logger != nil {
		uc.logger.Debug(order.ID, "engine", fmt.Sprintf("input sent (%d bytes)", len(message)))
	}
	return &SendInputOutput{}, nil
}

func isNoSession(err error) bool {
	return errors.Is(err, domain.ErrNoSession)
}
