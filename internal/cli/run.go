package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// cancelPollInterval is how often a running order is checked for a cancel
// recorded by another cafe process.
const cancelPollInterval = time.Second

// transcriptSize returns the current transcript size of an order.
func transcriptSize(c *app.Container, orderID string) int64 {
	info, err := os.Stat(c.Transcripts.Path(orderID))
	if err != nil {
		return 0
	}
	return info.Size()
}

// waitForRun blocks until the engine run of orderID ends.
//
// While waiting it streams transcript output written after offset to w
// (unless w is nil), forwards input posted by `cafe order send` from other
// processes, and stops the run when the order is cancelled elsewhere.
// Cancelling ctx cancels the order.
func waitForRun(ctx context.Context, c *app.Container, orderID string, w io.Writer, offset int64) (*domain.Order, error) {
	done := make(chan struct{})
	go func() {
		_ = c.Engine.Wait(context.Background(), orderID)
		close(done)
	}()
	finished := func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	go func() {
		err := c.Transcripts.Inbox(relayCtx, orderID, func(message string) {
			if _, err := c.SendInputUseCase().Execute(relayCtx, usecase.SendInputInput{OrderID: orderID, Message: message}); err != nil {
				c.Logger.Warn(orderID, "input", fmt.Sprintf("relay input: %v", err))
			}
		})
		if err != nil {
			c.Logger.Warn(orderID, "input", fmt.Sprintf("watch inbox: %v", err))
		}
	}()

	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if _, err := c.CancelOrderUseCase().Execute(context.Background(), usecase.CancelOrderInput{OrderID: orderID}); err != nil {
					c.Logger.Warn(orderID, "order", fmt.Sprintf("cancel on interrupt: %v", err))
				}
				return
			case <-done:
				return
			case <-relayCtx.Done():
				return
			case <-ticker.C:
				order, err := c.Orders.Get(orderID)
				if err == nil && order != nil && order.Status == domain.StatusCancelled {
					_ = c.Engine.Cancel(context.Background(), orderID)
				}
			}
		}
	}()

	if w != nil {
		r := &transcriptRenderer{w: w, skip: offset}
		if err := c.Transcripts.Follow(context.Background(), orderID, r, finished); err != nil {
			return nil, err
		}
	}
	<-done

	order, err := c.Orders.Get(orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return order, nil
}

// reportRun prints the final state of a run and turns a failed order into
// an error so the process exits non-zero.
func reportRun(w io.Writer, order *domain.Order) error {
	_, _ = fmt.Fprintf(w, "Order %s %s\n", domain.ShortID(order.ID), formatStatus(order.Status))
	switch order.Status {
	case domain.StatusFailed:
		return errors.New("order failed: " + orDash(order.Error))
	case domain.StatusCancelled:
		return errors.New("order cancelled")
	}
	return nil
}
