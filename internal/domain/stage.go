package domain

import "time"

// StageStatus represents the execution state of a stage or a session.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// IsTerminal returns true if the stage has finished.
func (s StageStatus) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// StageResult is the per-order, per-stage execution status.
// Fields are ordered to minimize memory padding.
type StageResult struct {
	Started   time.Time     `json:"started,omitzero"`
	Completed time.Time     `json:"completed,omitzero"`
	StageID   string        `json:"stageId"`
	Status    StageStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Output    []string      `json:"output,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Attempt   int           `json:"attempt"`
}

// SessionStatus tracks whether an order's live interaction is awaiting user input.
// It is a projection rebuilt from the event stream, not the system of record.
type SessionStatus struct {
	OrderID       string      `json:"orderId"`
	Status        StageStatus `json:"status"`
	Prompt        string      `json:"prompt,omitempty"`
	AwaitingInput bool        `json:"awaitingInput"`
}

// TodoItem is a single entry of a TodoProgress snapshot.
type TodoItem struct {
	Content string `json:"content"`
	Status  string `json:"status"`
}

// TodoProgress is a snapshot of the task list reported by the engine.
// A new snapshot always replaces the previous one.
type TodoProgress struct {
	Todos      []TodoItem `json:"todos,omitempty"`
	Completed  int        `json:"completed"`
	InProgress int        `json:"inProgress"`
	Total      int        `json:"total"`
}
