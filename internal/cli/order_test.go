package cli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase"
)

func TestOrderNew_CreatesPendingOrder(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")

	// Execute
	out, err := run(t, newOrderNewCommand(env.c), "--cafe", env.workDir, "--var", "TICKET=42", "fix", "the", "bug")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Created order ")

	orders, err := env.c.Orders.List(domain.OrderFilter{IncludeTerminal: true})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "fix the bug", orders[0].Prompt)
	assert.Equal(t, domain.StatusPending, orders[0].Status)
	assert.Equal(t, "42", orders[0].Variables["TICKET"])
}

func TestOrderNew_InvalidVariable(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := run(t, newOrderNewCommand(env.c), "--cafe", env.workDir, "--var", "NOEQUALS", "prompt")

	assert.ErrorContains(t, err, "expected KEY=VALUE")
}

func TestOrderNew_UnknownCafe(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := run(t, newOrderNewCommand(env.c), "--cafe", "no-such-cafe", "prompt")

	assert.ErrorIs(t, err, domain.ErrCafeNotFound)
}

func TestOrderNew_StartRunsToCompletion(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")

	// Execute
	out, err := run(t, newOrderNewCommand(env.c), "--cafe", env.workDir, "--start", "hello from the test")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Started order")
	assert.Contains(t, out, "> hello from the test")
	assert.Contains(t, out, "hello from the test\n")
	assert.Contains(t, out, "==> ")
	assert.Contains(t, out, "COMPLETED")

	orders, err := env.c.Orders.List(domain.OrderFilter{IncludeTerminal: true})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusCompleted, orders[0].Status)
}

func TestOrderStart_FailedRunReturnsError(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	order := env.createOrder(t, "--provider", "fail", "break things")

	// Execute
	out, err := run(t, newOrderStartCommand(env.c), order.ID)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "FAILED")
	assert.Equal(t, domain.StatusFailed, env.order(t, order.ID).Status)
}

func TestOrderStart_QuietSuppressesOutput(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "silent run")

	out, err := run(t, newOrderStartCommand(env.c), "--quiet", order.ID)

	require.NoError(t, err)
	assert.NotContains(t, out, "silent run")
	assert.Contains(t, out, "COMPLETED")
}

func TestOrderStart_NotFound(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := run(t, newOrderStartCommand(env.c), "missing")

	assert.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestOrderList(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	pending := env.createOrder(t, "first order")
	done := env.createOrder(t, "second order")
	_, err := run(t, newOrderStartCommand(env.c), "--quiet", done.ID)
	require.NoError(t, err)

	// Execute
	active, err := run(t, newOrderListCommand(env.c))
	require.NoError(t, err)
	all, err := run(t, newOrderListCommand(env.c), "--all")
	require.NoError(t, err)
	completed, err := run(t, newOrderListCommand(env.c), "--status", "completed")
	require.NoError(t, err)

	// Assert
	assert.Contains(t, active, "ID")
	assert.Contains(t, active, domain.ShortID(pending.ID))
	assert.NotContains(t, active, domain.ShortID(done.ID))
	assert.Contains(t, all, domain.ShortID(done.ID))
	assert.Contains(t, all, "first order")
	assert.Contains(t, completed, domain.ShortID(done.ID))
	assert.NotContains(t, completed, domain.ShortID(pending.ID))
}

func TestOrderList_Empty(t *testing.T) {
	env := newTestEnv(t, "")

	out, err := run(t, newOrderListCommand(env.c))

	require.NoError(t, err)
	assert.Contains(t, out, "No orders")
}

func TestOrderList_InvalidStatus(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := run(t, newOrderListCommand(env.c), "--status", "sleeping")

	assert.ErrorContains(t, err, "invalid status")
}

func TestOrderShow(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	order := env.createOrder(t, "--var", "A=1", "show me")

	// Execute
	out, err := run(t, newOrderShowCommand(env.c), order.ID)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, order.ID)
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "A=1")
	assert.Contains(t, out, "show me")
	assert.Contains(t, out, env.workDir)
}

func TestOrderCancel_Pending(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "never mind")

	out, err := run(t, newOrderCancelCommand(env.c), order.ID)

	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled order")
	assert.Equal(t, domain.StatusCancelled, env.order(t, order.ID).Status)
}

func TestOrderCancel_Completed(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "done already")
	_, err := run(t, newOrderStartCommand(env.c), "--quiet", order.ID)
	require.NoError(t, err)

	_, err = run(t, newOrderCancelCommand(env.c), order.ID)

	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOrderSend_NotRunning(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "idle")

	_, err := run(t, newOrderSendCommand(env.c), order.ID, "hello")

	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
}

func TestOrderSend_QueuesForOtherProcess(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	order := env.createOrder(t, "running elsewhere")
	order.Status = domain.StatusRunning
	require.NoError(t, env.c.Orders.Save(order))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan string, 1)
	go func() {
		_ = env.c.Transcripts.Inbox(ctx, order.ID, func(message string) { got <- message })
	}()
	time.Sleep(100 * time.Millisecond)

	// Execute
	out, err := run(t, newOrderSendCommand(env.c), order.ID, "  yes", "please  ")

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Queued input")
	select {
	case msg := <-got:
		assert.Equal(t, "yes please", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestOrderStart_RelaysQueuedInput(t *testing.T) {
	// Setup
	env := newTestEnv(t, `
[providers.ask]
command_template = 'echo "[AWAITING_INPUT] name?"; read answer; echo "hi $answer"'
`)
	order := env.createOrder(t, "--provider", "ask", "greet")

	go func() {
		// Wait for the question, then answer from "another process".
		for i := 0; i < 100; i++ {
			if env.c.Engine.IsAwaiting(order.ID) {
				time.Sleep(200 * time.Millisecond)
				_ = env.c.Transcripts.Post(order.ID, "cafe")
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}()

	// Execute
	out, err := run(t, newOrderStartCommand(env.c), order.ID)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "? name?")
	assert.Contains(t, out, "hi cafe")
}

func TestOrderHistoryAndStages(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	order := env.createOrder(t, "make history")
	_, err := run(t, newOrderStartCommand(env.c), "--quiet", order.ID)
	require.NoError(t, err)

	// Execute
	history, err := run(t, newOrderHistoryCommand(env.c), order.ID)
	require.NoError(t, err)
	stages, err := run(t, newOrderStagesCommand(env.c), "--timeline", order.ID)
	require.NoError(t, err)

	// Assert
	assert.Contains(t, history, usecase.HistoryTypeUserInput)
	assert.Contains(t, history, "make history")
	assert.Contains(t, stages, "STAGE")
	assert.Contains(t, stages, "code")
	assert.Contains(t, stages, string(domain.StageCompleted))
	assert.Contains(t, stages, "Timeline:")
	assert.Contains(t, stages, "stage_complete")
}

func TestOrderHistory_HidesStderrByDefault(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "--provider", "fail", "noisy")
	_, _ = run(t, newOrderStartCommand(env.c), "--quiet", order.ID)

	filtered, err := run(t, newOrderHistoryCommand(env.c), order.ID)
	require.NoError(t, err)
	all, err := run(t, newOrderHistoryCommand(env.c), "--all", order.ID)
	require.NoError(t, err)

	assert.NotContains(t, filtered, "boom")
	assert.Contains(t, all, "boom")
}

func TestOrderStages_NoTranscript(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "not started")

	out, err := run(t, newOrderStagesCommand(env.c), order.ID)

	require.NoError(t, err)
	assert.Contains(t, out, "No stages recorded")
}

func TestOrderLogs(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	order := env.createOrder(t, "log this")
	_, err := run(t, newOrderStartCommand(env.c), "--quiet", order.ID)
	require.NoError(t, err)

	// Execute
	rendered, err := run(t, newOrderLogsCommand(env.c), order.ID)
	require.NoError(t, err)
	raw, err := run(t, newOrderLogsCommand(env.c), "--raw", order.ID)
	require.NoError(t, err)
	followed, err := run(t, newOrderLogsCommand(env.c), "--follow", order.ID)
	require.NoError(t, err)

	// Assert
	assert.Contains(t, rendered, "> log this")
	assert.NotContains(t, rendered, "[STAGE_START]")
	assert.Contains(t, raw, "[STAGE_START]")
	assert.Contains(t, raw, "[USER_PROMPT] log this")
	assert.Equal(t, rendered, followed)
}

func TestOrderLogs_NoTranscript(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "quiet")

	out, err := run(t, newOrderLogsCommand(env.c), order.ID)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOrderRm(t *testing.T) {
	// Setup
	env := newTestEnv(t, "")
	order := env.createOrder(t, "--start", "remove me")

	// Execute
	out, err := run(t, newOrderRmCommand(env.c), order.ID)

	// Assert
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted order")
	o, err := env.c.Orders.Get(order.ID)
	require.NoError(t, err)
	assert.Nil(t, o)
	assert.NoFileExists(t, env.c.Transcripts.Path(order.ID))
}

func TestOrderRm_PartialFailure(t *testing.T) {
	env := newTestEnv(t, "")
	order := env.createOrder(t, "keep going")

	out, err := run(t, newOrderRmCommand(env.c), "missing", order.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, out, "Deleted order "+domain.ShortID(order.ID))
}

func TestTranscriptSize(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Zero(t, transcriptSize(env.c, "none"))

	require.NoError(t, env.c.Transcripts.Append("o1", time.Now(), "line"))
	info, err := os.Stat(env.c.Transcripts.Path("o1"))
	require.NoError(t, err)

	assert.Equal(t, info.Size(), transcriptSize(env.c, "o1"))
}
