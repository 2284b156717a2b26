package tui

import (
	"github.com/runoshun/git-cafe/internal/usecase"
)

// Msg is the interface for all board messages.
// All message types implement this sealed interface.
//
//sumtype:decl
type Msg interface {
	sealed()
}

// MsgOrdersLoaded is sent when the order list has been read.
type MsgOrdersLoaded struct {
	Err    error
	Orders []usecase.OrderView
}

func (MsgOrdersLoaded) sealed() {}

// MsgDetailLoaded is sent when the stage projection of an order is rebuilt.
type MsgDetailLoaded struct {
	Err     error
	Detail  *usecase.OrderStagesOutput
	OrderID string
}

func (MsgDetailLoaded) sealed() {}

// MsgOrderCancelled is sent after a cancel request completes.
type MsgOrderCancelled struct {
	Err     error
	OrderID string
}

func (MsgOrderCancelled) sealed() {}

// MsgTick is sent periodically for auto-refresh.
type MsgTick struct{}

func (MsgTick) sealed() {}
