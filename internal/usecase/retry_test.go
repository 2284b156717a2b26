package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/testutil"
)

func newRetryOrder(f *fixture) *RetryOrder {
	return NewRetryOrder(f.startOrder(), f.orders, f.baristas, f.clock, f.logger)
}

func TestRetryOrder_Execute_FromStage(t *testing.T) {
	// Setup
	f := newFixture()
	order := f.addOrder("o1", domain.StatusFailed, true)
	order.Error = "stage review failed"

	// Execute
	out, err := newRetryOrder(f).Execute(context.Background(), RetryOrderInput{OrderID: "o1", StageID: "review"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, out.Order.Status)
	assert.Empty(t, out.Order.Error)
	assert.Equal(t, []testutil.EngineCall{
		{Method: "StartOrder", OrderID: "o1"},
		{Method: "RetryFromStage", OrderID: "o1", Arg: "review"},
	}, f.engine.Calls)
}

func TestRetryOrder_Execute_FromBeginning(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusCompleted, true)

	_, err := newRetryOrder(f).Execute(context.Background(), RetryOrderInput{
		OrderID:         "o1",
		FromBeginning:   true,
		PreserveContext: true,
	})

	require.NoError(t, err)
	require.Len(t, f.engine.Calls, 2)
	assert.Equal(t, testutil.EngineCall{Method: "RetryFromBeginning", OrderID: "o1", Arg: "true"}, f.engine.Calls[1])
}

func TestRetryOrder_Execute_NotTerminal(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusRunning, false)

	_, err := newRetryOrder(f).Execute(context.Background(), RetryOrderInput{OrderID: "o1"})

	assert.ErrorIs(t, err, domain.ErrNothingToRetry)
	assert.Empty(t, f.engine.Calls)
}

func TestRetryOrder_Execute_EngineFailure(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusFailed, false)
	f.engine.RetryErr = errors.New("unknown stage deploy")

	_, err := newRetryOrder(f).Execute(context.Background(), RetryOrderInput{OrderID: "o1", StageID: "deploy"})

	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, f.orders.Orders["o1"].Status)
	assert.Equal(t, "unknown stage deploy", f.orders.Orders["o1"].Error)
}

func TestGetRetryOptions_Execute(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusFailed, false)
	f.engine.RetryOpts = &domain.RetryOptions{FailedStage: "review", Stages: []string{"code", "review"}, CanResume: true}

	out, err := NewGetRetryOptions(f.orders, f.engines).Execute(context.Background(), GetRetryOptionsInput{OrderID: "o1"})

	require.NoError(t, err)
	assert.Equal(t, f.engine.RetryOpts, out.Options)
}
