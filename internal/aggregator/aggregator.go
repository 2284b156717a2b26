// Package aggregator projects protocol events into per-order stage,
// session and timeline views.
package aggregator

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/protocol"
	"github.com/runoshun/git-cafe/internal/transcript"
)

// TimelineKind is the type of a timeline entry.
type TimelineKind string

// Timeline kinds.
const (
	KindStageStart    TimelineKind = "stage_start"
	KindStageComplete TimelineKind = "stage_complete"
	KindStageFail     TimelineKind = "stage_fail"
	KindAwaitingInput TimelineKind = "awaiting_input"
	KindSessionEnd    TimelineKind = "session_end"
)

// TimelineEntry is a single chronological event of an order.
// Fields are ordered to minimize memory padding.
type TimelineEntry struct {
	At       time.Time     `json:"at"`
	Kind     TimelineKind  `json:"kind"`
	StageID  string        `json:"stageId,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
}

// Severity is an advisory display classification of an output line.
type Severity string

// Severities.
const (
	SeverityError   Severity = "error"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Classify returns the display severity of text.
// It is display metadata only and never drives state transitions.
func Classify(text string) Severity {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "error"), strings.Contains(lower, "failed"):
		return SeverityError
	case strings.Contains(lower, "success"), strings.Contains(lower, "completed"):
		return SeveritySuccess
	case strings.Contains(lower, "warning"):
		return SeverityWarning
	}
	return SeverityInfo
}

// LogLine is an entry of an order's raw log buffer.
type LogLine struct {
	At       time.Time          `json:"at"`
	Type     protocol.EventType `json:"type"`
	Content  string             `json:"content"`
	Severity Severity           `json:"severity"`
}

// DefaultBufferSize is the number of log lines kept per order.
const DefaultBufferSize = domain.DefaultLogBufferLines

// timelineKey deduplicates stage timeline entries.
type timelineKey struct {
	stageID string
	kind    TimelineKind
	attempt int
}

type orderState struct {
	stages   map[string]*domain.StageResult
	seen     map[timelineKey]bool
	session  *domain.SessionStatus
	todos    *domain.TodoProgress
	order    []string
	timeline []TimelineEntry
	logs     []LogLine
	running  string // Stage currently running
}

func newOrderState() *orderState {
	return &orderState{
		stages: make(map[string]*domain.StageResult),
		seen:   make(map[timelineKey]bool),
	}
}

// Aggregator maintains live projections for many orders.
// It is safe for concurrent use. Events for one order must be applied in
// emission order.
type Aggregator struct {
	logger     domain.Logger
	orders     map[string]*orderState
	bufferSize int
	mu         sync.Mutex
}

// New creates an Aggregator. bufferSize <= 0 uses DefaultBufferSize.
// logger may be nil.
func New(bufferSize int, logger domain.Logger) *Aggregator {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Aggregator{
		logger:     logger,
		orders:     make(map[string]*orderState),
		bufferSize: bufferSize,
	}
}

// state returns the order state, creating it. Caller must hold mu.
func (a *Aggregator) state(orderID string) *orderState {
	st, ok := a.orders[orderID]
	if !ok {
		st = newOrderState()
		a.orders[orderID] = st
	}
	return st
}

// Apply folds a protocol event into the order's projection.
func (a *Aggregator) Apply(orderID string, at time.Time, ev protocol.Event) {
	if err := ev.DecodeErr(); err != nil && a.logger != nil {
		a.logger.Warn(orderID, "protocol", fmt.Sprintf("undecodable %s payload: %v", ev.Type, err))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state(orderID)

	switch ev.Type {
	case protocol.TypeStageStart:
		if info, ok := ev.StageInfo(); ok {
			a.stageStart(st, orderID, at, info)
			return
		}
	case protocol.TypeStageEnd:
		if info, ok := ev.StageInfo(); ok {
			a.stageEnd(st, at, info)
			return
		}
	case protocol.TypeTodoProgress:
		if tp, ok := ev.Todo(); ok {
			st.todos = &tp
			return
		}
	case protocol.TypeAwaitingInput:
		a.setAwaiting(st, orderID, at, ev.Content)
		return
	case protocol.TypeUserPrompt:
		// Input reached the agent; it is no longer waiting.
		if st.session != nil {
			st.session.AwaitingInput = false
			st.session.Prompt = ""
		}
		a.appendLog(st, at, ev)
		return
	case protocol.TypeStdout, protocol.TypeStderr, protocol.TypeJSON,
		protocol.TypeTool, protocol.TypeToolResult, protocol.TypeResult:
	}

	// Output and undecodable structured lines.
	a.appendLog(st, at, ev)
	if st.running != "" {
		if sr := st.stages[st.running]; sr != nil {
			sr.Output = append(sr.Output, ev.Content)
		}
	}
}

func (a *Aggregator) stageStart(st *orderState, orderID string, at time.Time, info protocol.StageInfo) {
	sr, ok := st.stages[info.StageID]
	switch {
	case !ok:
		sr = &domain.StageResult{StageID: info.StageID, Attempt: 1}
		st.stages[info.StageID] = sr
		st.order = append(st.order, info.StageID)
	case sr.Status == domain.StageRunning:
		// Duplicate delivery of the same start.
		return
	case sr.Status.IsTerminal():
		// A retry: new attempt, previous attempt stays in the timeline.
		*sr = domain.StageResult{StageID: info.StageID, Attempt: sr.Attempt + 1}
	}
	sr.Status = domain.StageRunning
	sr.Started = at
	st.running = info.StageID

	if st.session == nil {
		st.session = &domain.SessionStatus{OrderID: orderID}
	}
	st.session.Status = domain.StageRunning

	a.addTimeline(st, TimelineEntry{
		At:      at,
		Kind:    KindStageStart,
		StageID: info.StageID,
		Attempt: sr.Attempt,
		Message: info.StageName,
	})
}

func (a *Aggregator) stageEnd(st *orderState, at time.Time, info protocol.StageInfo) {
	target := domain.StageCompleted
	kind := KindStageComplete
	if info.Failed() {
		target = domain.StageFailed
		kind = KindStageFail
	}

	sr, ok := st.stages[info.StageID]
	if !ok {
		sr = &domain.StageResult{StageID: info.StageID, Attempt: 1}
		st.stages[info.StageID] = sr
		st.order = append(st.order, info.StageID)
	}
	if sr.Status == target {
		// Duplicate delivery of the same end.
		return
	}

	sr.Status = target
	sr.Completed = at
	switch {
	case info.DurationMs > 0:
		sr.Duration = time.Duration(info.DurationMs) * time.Millisecond
	case !sr.Started.IsZero():
		sr.Duration = at.Sub(sr.Started)
	}
	sr.Error = ""
	if target == domain.StageFailed {
		sr.Error = info.Error
	}
	if st.running == info.StageID {
		st.running = ""
	}

	a.addTimeline(st, TimelineEntry{
		At:       at,
		Kind:     kind,
		StageID:  info.StageID,
		Attempt:  sr.Attempt,
		Duration: sr.Duration,
		Message:  sr.Error,
	})
}

func (a *Aggregator) setAwaiting(st *orderState, orderID string, at time.Time, prompt string) {
	if st.session == nil {
		st.session = &domain.SessionStatus{OrderID: orderID, Status: domain.StageRunning}
	}
	wasAwaiting := st.session.AwaitingInput
	st.session.AwaitingInput = true
	st.session.Prompt = prompt
	if !wasAwaiting {
		st.timeline = append(st.timeline, TimelineEntry{At: at, Kind: KindAwaitingInput, Message: prompt})
	}
}

// addTimeline appends a stage entry unless one with the same key exists.
func (a *Aggregator) addTimeline(st *orderState, e TimelineEntry) {
	key := timelineKey{stageID: e.StageID, kind: e.Kind, attempt: e.Attempt}
	if st.seen[key] {
		return
	}
	st.seen[key] = true
	st.timeline = append(st.timeline, e)
}

func (a *Aggregator) appendLog(st *orderState, at time.Time, ev protocol.Event) {
	st.logs = append(st.logs, LogLine{
		At:       at,
		Type:     ev.Type,
		Content:  ev.Content,
		Severity: Classify(ev.Content),
	})
	if over := len(st.logs) - a.bufferSize; over > 0 {
		st.logs = slices.Delete(st.logs, 0, over)
	}
}

// StartSession marks the order's session as running and not awaiting input.
func (a *Aggregator) StartSession(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state(orderID)
	st.session = &domain.SessionStatus{OrderID: orderID, Status: domain.StageRunning}
}

// SetAwaiting flags the order's session as waiting for user input.
func (a *Aggregator) SetAwaiting(orderID, prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setAwaiting(a.state(orderID), orderID, time.Now(), prompt)
}

// ClearAwaiting clears the awaiting-input flag.
func (a *Aggregator) ClearAwaiting(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.orders[orderID]; ok && st.session != nil {
		st.session.AwaitingInput = false
		st.session.Prompt = ""
	}
}

// EndSession records the final session status and clears the awaiting flag.
func (a *Aggregator) EndSession(orderID string, status domain.StageStatus) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.state(orderID)
	if st.session == nil {
		st.session = &domain.SessionStatus{OrderID: orderID}
	}
	st.session.Status = status
	st.session.AwaitingInput = false
	st.session.Prompt = ""
	st.running = ""
	st.timeline = append(st.timeline, TimelineEntry{At: time.Now(), Kind: KindSessionEnd, Message: string(status)})
}

// Session returns the order's session status.
func (a *Aggregator) Session(orderID string) (domain.SessionStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.orders[orderID]
	if !ok || st.session == nil {
		return domain.SessionStatus{}, false
	}
	return *st.session, true
}

// IsAwaiting reports whether the order is waiting for user input.
func (a *Aggregator) IsAwaiting(orderID string) bool {
	s, ok := a.Session(orderID)
	return ok && s.AwaitingInput
}

// Stages returns the order's stages in first-seen order.
func (a *Aggregator) Stages(orderID string) []domain.StageResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.orders[orderID]
	if !ok {
		return nil
	}
	out := make([]domain.StageResult, 0, len(st.order))
	for _, id := range st.order {
		sr := *st.stages[id]
		sr.Output = slices.Clone(sr.Output)
		out = append(out, sr)
	}
	return out
}

// Stage returns a single stage.
func (a *Aggregator) Stage(orderID, stageID string) (domain.StageResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.orders[orderID]
	if !ok {
		return domain.StageResult{}, false
	}
	sr, ok := st.stages[stageID]
	if !ok {
		return domain.StageResult{}, false
	}
	out := *sr
	out.Output = slices.Clone(sr.Output)
	return out, true
}

// Timeline returns the order's timeline.
func (a *Aggregator) Timeline(orderID string) []TimelineEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.orders[orderID]; ok {
		return slices.Clone(st.timeline)
	}
	return nil
}

// Logs returns the order's buffered log lines, oldest first.
func (a *Aggregator) Logs(orderID string) []LogLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.orders[orderID]; ok {
		return slices.Clone(st.logs)
	}
	return nil
}

// Todos returns the latest todo snapshot.
func (a *Aggregator) Todos(orderID string) (domain.TodoProgress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.orders[orderID]
	if !ok || st.todos == nil {
		return domain.TodoProgress{}, false
	}
	tp := *st.todos
	tp.Todos = slices.Clone(tp.Todos)
	return tp, true
}

// Forget drops all state for the order.
func (a *Aggregator) Forget(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.orders, orderID)
}

// Replay decodes reconstructed transcript records and applies them in order.
func (a *Aggregator) Replay(orderID string, records []transcript.Record) {
	for _, rec := range records {
		a.Apply(orderID, rec.Timestamp, protocol.Decode(rec.Message))
	}
}
