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

func newFollowup(f *fixture, action FollowupAction) *Followup {
	return NewFollowup(f.orders, f.engines, f.baristas, f.logger, action)
}

func TestFollowup_Execute_RestoresSessionFirst(t *testing.T) {
	// Setup
	f := newFixture()
	order := f.addOrder("o1", domain.StatusCompleted, true)

	// Execute
	out, err := newFollowup(f, FollowupEnter).Execute(context.Background(), FollowupInput{OrderID: "o1"})

	// Assert
	require.NoError(t, err)
	require.Len(t, f.engine.Calls, 2)
	assert.Equal(t, "RestoreSessionForFollowup", f.engine.Calls[0].Method)
	assert.Equal(t, "EnterFollowup", f.engine.Calls[1].Method)
	assert.Equal(t, order.Worktree.Path, f.engine.RestoredCwd)
	assert.Equal(t, "shop", f.engine.RestoredCounter)
	assert.Equal(t, "barista-1", out.Order.BaristaID)
	assert.Equal(t, "barista-1", f.orders.Orders["o1"].BaristaID)
}

func TestFollowup_Execute_LiveSessionSkipsRestore(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusRunning, true)
	f.engine.Sessions["o1"] = true

	_, err := newFollowup(f, FollowupExecute).Execute(context.Background(), FollowupInput{OrderID: "o1", Prompt: " also add tests "})

	require.NoError(t, err)
	assert.False(t, f.engine.Called("RestoreSessionForFollowup"))
	assert.Equal(t, []testutil.EngineCall{{Method: "ExecuteFollowup", OrderID: "o1", Arg: "also add tests"}}, f.engine.Calls)
}

func TestFollowup_Execute_PreconditionFailures(t *testing.T) {
	tests := []struct {
		name   string
		status domain.OrderStatus
		wt     bool
		want   error
	}{
		{"not completed", domain.StatusFailed, true, domain.ErrNotCompleted},
		{"no worktree", domain.StatusCompleted, false, domain.ErrNoWorktree},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.addOrder("o1", tt.status, tt.wt)

			_, err := newFollowup(f, FollowupEnter).Execute(context.Background(), FollowupInput{OrderID: "o1"})

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.KindPreconditionFailed, domain.KindOf(err))
			assert.Empty(t, f.engine.Calls)
		})
	}
}

func TestFollowup_Execute_RestoreFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusCompleted, true)
	f.engine.RestoreErr = errors.New("session transcript missing")

	_, err := newFollowup(f, FollowupExecute).Execute(context.Background(), FollowupInput{OrderID: "o1", Prompt: "go on"})

	assert.Equal(t, domain.KindSessionRestoreFailed, domain.KindOf(err))
	assert.False(t, f.engine.Called("ExecuteFollowup"))
	assert.Empty(t, f.orders.Orders["o1"].BaristaID)
}

func TestFollowup_Execute_FinishReleasesBarista(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusCompleted, true)

	_, err := newFollowup(f, FollowupFinish).Execute(context.Background(), FollowupInput{OrderID: "o1"})

	require.NoError(t, err)
	assert.True(t, f.engine.Called("FinishFollowup"))
	assert.Equal(t, []string{"o1"}, f.baristas.Released)
}

func TestFollowup_Execute_EmptyPrompt(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusCompleted, true)

	_, err := newFollowup(f, FollowupExecute).Execute(context.Background(), FollowupInput{OrderID: "o1"})

	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
	assert.Empty(t, f.engine.Calls)
}

func TestFollowup_Execute_EngineNotInitialized(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusCompleted, true)

	uc := NewFollowup(f.orders, &testutil.MockEngineProvider{}, f.baristas, f.logger, FollowupEnter)
	_, err := uc.Execute(context.Background(), FollowupInput{OrderID: "o1"})

	assert.Equal(t, domain.KindEngineNotInitialized, domain.KindOf(err))
}
