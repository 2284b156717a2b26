package usecase

import (
	"context"
	"fmt"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// OrderView is an order together with its derived display status.
type OrderView struct {
	Order         *domain.Order
	DisplayStatus domain.OrderStatus
}

// ListOrdersInput contains the parameters for listing orders.
type ListOrdersInput struct {
	CafeID          string               // Filter by cafe (empty = all)
	Statuses        []domain.OrderStatus // Filter by status (empty = all non-terminal)
	IncludeTerminal bool                 // Include completed/failed/cancelled orders
}

// ListOrdersOutput contains the listed orders, oldest first.
type ListOrdersOutput struct {
	Orders []OrderView
}

// ListOrders is the use case for listing orders.
type ListOrders struct {
	orders  domain.OrderRepository
	tracker domain.SessionTracker
}

// NewListOrders creates a new ListOrders use case.
func NewListOrders(orders domain.OrderRepository, tracker domain.SessionTracker) *ListOrders {
	return &ListOrders{orders: orders, tracker: tracker}
}

// Execute lists orders matching the filter.
func (uc *ListOrders) Execute(_ context.Context, in ListOrdersInput) (*ListOrdersOutput, error) {
	filter := domain.OrderFilter{
		CafeID:          in.CafeID,
		Statuses:        in.Statuses,
		IncludeTerminal: in.IncludeTerminal,
	}
	orders, err := uc.orders.List(filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOf(o, uc.tracker))
	}
	return &ListOrdersOutput{Orders: views}, nil
}

// ShowOrderInput contains the parameters for showing an order.
type ShowOrderInput struct {
	OrderID string
}

// ShowOrderOutput contains the order details.
type ShowOrderOutput struct {
	OrderView
}

// ShowOrder is the use case for showing a single order.
type ShowOrder struct {
	orders  domain.OrderRepository
	tracker domain.SessionTracker
}

// NewShowOrder creates a new ShowOrder use case.
func NewShowOrder(orders domain.OrderRepository, tracker domain.SessionTracker) *ShowOrder {
	return &ShowOrder{orders: orders, tracker: tracker}
}

// Execute returns the order.
func (uc *ShowOrder) Execute(_ context.Context, in ShowOrderInput) (*ShowOrderOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	return &ShowOrderOutput{OrderView: viewOf(order, uc.tracker)}, nil
}

func viewOf(o *domain.Order, tracker domain.SessionTracker) OrderView {
	awaiting := false
	if tracker != nil && o.Status == domain.StatusRunning {
		awaiting = tracker.IsAwaiting(o.ID)
	}
	return OrderView{Order: o, DisplayStatus: domain.DisplayStatus(o.Status, awaiting)}
}
