package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/protocol"
)

func writeTranscript(f *fixture, orderID string, lines ...string) {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, line := range lines {
		_ = f.transcripts.Append(orderID, at.Add(time.Duration(i)*time.Second), line)
	}
}

func TestOrderHistory_Execute(t *testing.T) {
	// Setup
	f := newFixture()
	f.addOrder("o1", domain.StatusCompleted, false)
	writeTranscript(f, "o1",
		protocol.Line(protocol.TypeUserPrompt, "fix the bug"),
		protocol.StageStartLine("code", "Implement", "claude", nil),
		"editing main.go\nand util.go",
		protocol.StageEndLine("code", 1500*time.Millisecond, nil),
	)

	// Execute
	out, err := NewOrderHistory(f.orders, f.transcripts, f.clock).Execute(context.Background(), OrderHistoryInput{OrderID: "o1"})

	// Assert
	require.NoError(t, err)
	require.Len(t, out.Entries, 4)
	assert.Equal(t, HistoryEntry{
		OrderID:   "o1",
		Timestamp: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Type:      HistoryTypeUserInput,
		Content:   "fix the bug",
	}, out.Entries[0])
	assert.Equal(t, "stage_start", out.Entries[1].Type)
	assert.Equal(t, "▶ Stage code [IMPLEMENTATION] (claude)", out.Entries[1].Content)
	assert.Equal(t, "stdout", out.Entries[2].Type)
	assert.Equal(t, "editing main.go\nand util.go", out.Entries[2].Content)
	assert.Equal(t, "stage_end", out.Entries[3].Type)
	assert.Equal(t, "✓ Completed code [IMPLEMENTATION] (1.5s)", out.Entries[3].Content)
}

func TestOrderHistory_Execute_NoTranscript(t *testing.T) {
	f := newFixture()
	f.addOrder("o1", domain.StatusPending, false)

	out, err := NewOrderHistory(f.orders, f.transcripts, f.clock).Execute(context.Background(), OrderHistoryInput{OrderID: "o1"})

	require.NoError(t, err)
	assert.Empty(t, out.Entries)
}

func TestOrderHistory_Execute_Errors(t *testing.T) {
	f := newFixture()
	_, err := NewOrderHistory(f.orders, f.transcripts, f.clock).Execute(context.Background(), OrderHistoryInput{OrderID: "nope"})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	f.addOrder("o1", domain.StatusPending, false)
	f.transcripts.OpenErr = errors.New("permission denied")
	_, err = NewOrderHistory(f.orders, f.transcripts, f.clock).Execute(context.Background(), OrderHistoryInput{OrderID: "o1"})
	assert.ErrorContains(t, err, "permission denied")
}

func TestOrderStages_Execute(t *testing.T) {
	// Setup
	f := newFixture()
	f.addOrder("o1", domain.StatusRunning, false)
	writeTranscript(f, "o1",
		protocol.StageStartLine("code", "Implement", "claude", nil),
		"done",
		protocol.StageEndLine("code", 2*time.Second, nil),
		protocol.StageStartLine("review", "Review", "codex", nil),
		protocol.TodoProgressLine(domain.TodoProgress{Completed: 1, Total: 3}),
		protocol.Line(protocol.TypeAwaitingInput, "Approve the change?"),
	)

	// Execute
	out, err := NewOrderStages(f.orders, f.transcripts, f.clock, f.logger, 0).Execute(context.Background(), OrderStagesInput{OrderID: "o1"})

	// Assert
	require.NoError(t, err)
	require.Len(t, out.Stages, 2)
	assert.Equal(t, domain.StageCompleted, out.Stages[0].Status)
	assert.Equal(t, 2*time.Second, out.Stages[0].Duration)
	assert.Equal(t, []string{"done"}, out.Stages[0].Output)
	assert.Equal(t, domain.StageRunning, out.Stages[1].Status)
	require.NotNil(t, out.Todos)
	assert.Equal(t, 3, out.Todos.Total)
	require.NotNil(t, out.Session)
	assert.True(t, out.Session.AwaitingInput)
	assert.Equal(t, "Approve the change?", out.Session.Prompt)
	assert.Len(t, out.Timeline, 4)
}
