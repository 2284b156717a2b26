package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   OrderStatus
		to     OrderStatus
		expect bool
	}{
		// From pending
		{"pending -> running", StatusPending, StatusRunning, true},
		{"pending -> cancelled", StatusPending, StatusCancelled, true},
		{"pending -> completed", StatusPending, StatusCompleted, false},
		{"pending -> failed", StatusPending, StatusFailed, false},

		// From running
		{"running -> completed", StatusRunning, StatusCompleted, true},
		{"running -> failed", StatusRunning, StatusFailed, true},
		{"running -> cancelled", StatusRunning, StatusCancelled, true},
		{"running -> pending", StatusRunning, StatusPending, false},

		// Terminal states only reopen
		{"completed -> pending", StatusCompleted, StatusPending, true},
		{"completed -> running", StatusCompleted, StatusRunning, false},
		{"failed -> pending", StatusFailed, StatusPending, true},
		{"failed -> completed", StatusFailed, StatusCompleted, false},
		{"cancelled -> pending", StatusCancelled, StatusPending, true},
		{"cancelled -> running", StatusCancelled, StatusRunning, false},

		// Display-only status has no transitions
		{"waiting_input -> running", StatusWaitingInput, StatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Predicates(t *testing.T) {
	tests := []struct {
		status    OrderStatus
		terminal  bool
		canStart  bool
		canCancel bool
		valid     bool
	}{
		{StatusPending, false, true, true, true},
		{StatusRunning, false, false, true, true},
		{StatusCompleted, true, true, false, true},
		{StatusFailed, true, true, false, true},
		{StatusCancelled, true, true, false, true},
		{StatusWaitingInput, false, false, false, false},
		{OrderStatus("bogus"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal(), "IsTerminal")
			assert.Equal(t, tt.canStart, tt.status.CanStart(), "CanStart")
			assert.Equal(t, tt.canCancel, tt.status.CanCancel(), "CanCancel")
			assert.Equal(t, tt.valid, tt.status.IsValid(), "IsValid")
		})
	}
}

func TestAllStatuses_ExcludesDisplayOnly(t *testing.T) {
	statuses := AllStatuses()
	assert.Len(t, statuses, 5)
	assert.NotContains(t, statuses, StatusWaitingInput)
	for _, s := range statuses {
		assert.True(t, s.IsValid(), s)
	}
}

func TestDisplayStatus(t *testing.T) {
	assert.Equal(t, StatusWaitingInput, DisplayStatus(StatusRunning, true))
	assert.Equal(t, StatusRunning, DisplayStatus(StatusRunning, false))
	// Awaiting flag only matters while running
	assert.Equal(t, StatusCompleted, DisplayStatus(StatusCompleted, true))
	assert.Equal(t, StatusPending, DisplayStatus(StatusPending, true))
}

func TestOrderStatus_Display(t *testing.T) {
	assert.Equal(t, "Waiting Input", StatusWaitingInput.Display())
	assert.Equal(t, "Cancelled", StatusCancelled.Display())
	assert.Equal(t, "weird", OrderStatus("weird").Display())
}
