package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/runoshun/git-cafe/internal/aggregator"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/protocol"
	"github.com/runoshun/git-cafe/internal/transcript"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// HistoryTypeUserInput is the display type of user_prompt entries.
const HistoryTypeUserInput = "user-input"

// HistoryEntry is one entry of an order's history.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	OrderID   string    `json:"orderId"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
}

// OrderHistoryInput contains the parameters for an order history query.
type OrderHistoryInput struct {
	OrderID string
}

// OrderHistoryOutput contains the history entries, oldest first.
type OrderHistoryOutput struct {
	Entries []HistoryEntry
}

// OrderHistory rebuilds the history of an order from its transcript.
type OrderHistory struct {
	orders      domain.OrderRepository
	transcripts domain.TranscriptStore
	clock       domain.Clock
}

// NewOrderHistory creates a new OrderHistory use case.
func NewOrderHistory(orders domain.OrderRepository, transcripts domain.TranscriptStore, clock domain.Clock) *OrderHistory {
	return &OrderHistory{
		orders:      orders,
		transcripts: transcripts,
		clock:       clock,
	}
}

// Execute returns the order's history. An order without a transcript has an
// empty history.
func (uc *OrderHistory) Execute(_ context.Context, in OrderHistoryInput) (*OrderHistoryOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}

	records, err := readTranscript(uc.transcripts, uc.clock, order.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		ev := protocol.Decode(rec.Message)
		typ := string(ev.Type)
		if ev.Type == protocol.TypeUserPrompt {
			typ = HistoryTypeUserInput
		}
		entries = append(entries, HistoryEntry{
			OrderID:   order.ID,
			Timestamp: rec.Timestamp,
			Type:      typ,
			Content:   ev.Content,
		})
	}
	return &OrderHistoryOutput{Entries: entries}, nil
}

// OrderStagesInput contains the parameters for a stage query.
type OrderStagesInput struct {
	OrderID string
}

// OrderStagesOutput is the stage projection of an order.
type OrderStagesOutput struct {
	Todos    *domain.TodoProgress
	Session  *domain.SessionStatus
	Stages   []domain.StageResult
	Timeline []aggregator.TimelineEntry
	Logs     []aggregator.LogLine
}

// OrderStages replays an order's transcript into a fresh aggregator.
type OrderStages struct {
	orders      domain.OrderRepository
	transcripts domain.TranscriptStore
	clock       domain.Clock
	logger      domain.Logger
	bufferSize  int
}

// NewOrderStages creates a new OrderStages use case.
func NewOrderStages(orders domain.OrderRepository, transcripts domain.TranscriptStore, clock domain.Clock, logger domain.Logger, bufferSize int) *OrderStages {
	return &OrderStages{
		orders:      orders,
		transcripts: transcripts,
		clock:       clock,
		logger:      logger,
		bufferSize:  bufferSize,
	}
}

// Execute rebuilds the projection.
func (uc *OrderStages) Execute(_ context.Context, in OrderStagesInput) (*OrderStagesOutput, error) {
	order, err := shared.GetOrder(uc.orders, in.OrderID)
	if err != nil {
		return nil, err
	}
	records, err := readTranscript(uc.transcripts, uc.clock, order.ID)
	if err != nil {
		return nil, err
	}

	agg := aggregator.New(uc.bufferSize, uc.logger)
	agg.Replay(order.ID, records)

	out := &OrderStagesOutput{
		Stages:   agg.Stages(order.ID),
		Timeline: agg.Timeline(order.ID),
		Logs:     agg.Logs(order.ID),
	}
	if session, ok := agg.Session(order.ID); ok {
		out.Session = &session
	}
	if todos, ok := agg.Todos(order.ID); ok {
		out.Todos = &todos
	}
	return out, nil
}

// readTranscript reconstructs an order's records. A missing transcript yields none.
func readTranscript(transcripts domain.TranscriptStore, clock domain.Clock, orderID string) ([]transcript.Record, error) {
	rc, err := transcripts.Open(orderID)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = rc.Close() }()

	records, err := transcript.Reconstruct(rc, clock.Now)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return records, nil
}
