package domain

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"   // Created, awaiting start
	StatusRunning   OrderStatus = "RUNNING"   // Engine working
	StatusCompleted OrderStatus = "COMPLETED" // Engine finished successfully
	StatusFailed    OrderStatus = "FAILED"    // Engine finished with an error
	StatusCancelled OrderStatus = "CANCELLED" // Explicitly cancelled

	// StatusWaitingInput is a display-only status. It is never persisted;
	// see DisplayStatus.
	StatusWaitingInput OrderStatus = "WAITING_INPUT"
)

// AllStatuses returns all persisted status values.
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending,
		StatusRunning,
		StatusCompleted,
		StatusFailed,
		StatusCancelled,
	}
}

// transitions defines the allowed status transitions.
// Flow: PENDING → RUNNING → COMPLETED | FAILED
//
//	PENDING | RUNNING → CANCELLED
//	COMPLETED | FAILED | CANCELLED → PENDING (reopen for retry)
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {StatusPending},
	StatusFailed:    {StatusPending},
	StatusCancelled: {StatusPending},
}

// CanTransitionTo returns true if the status can transition to the target status.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	case StatusPending, StatusRunning, StatusWaitingInput:
		return false
	}
	return false
}

// CanStart returns true if an order in this status can be (re)started.
// Terminal orders are reopened to PENDING first.
func (s OrderStatus) CanStart() bool {
	return s == StatusPending || s.IsTerminal()
}

// CanCancel returns true if an order in this status can be cancelled.
func (s OrderStatus) CanCancel() bool {
	return s.CanTransitionTo(StatusCancelled)
}

// IsValid returns true if the status is a known persisted value.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	case StatusWaitingInput:
		return false
	}
	return false
}

// Display returns a human-readable representation of the status.
func (s OrderStatus) Display() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusWaitingInput:
		return "Waiting Input"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// DisplayStatus derives the status shown to users.
// WAITING_INPUT is RUNNING plus a live awaiting-input flag; it is not stored
// so the two signals cannot drift apart.
func DisplayStatus(status OrderStatus, awaitingInput bool) OrderStatus {
	if status == StatusRunning && awaitingInput {
		return StatusWaitingInput
	}
	return status
}
