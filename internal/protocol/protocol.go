// Package protocol encodes and decodes the marker-tagged line protocol
// that multiplexes structured engine events into plain text output.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/runoshun/git-cafe/internal/domain"
)

// EventType is the decoded type of a protocol line.
type EventType string

// Event types.
const (
	TypeStdout        EventType = "stdout"
	TypeStderr        EventType = "stderr"
	TypeJSON          EventType = "json"
	TypeTool          EventType = "tool"
	TypeToolResult    EventType = "tool_result"
	TypeTodoProgress  EventType = "todo_progress"
	TypeResult        EventType = "result"
	TypeStageStart    EventType = "stage_start"
	TypeStageEnd      EventType = "stage_end"
	TypeUserPrompt    EventType = "user_prompt"
	TypeAwaitingInput EventType = "awaiting_input"
)

// Stage statuses carried in stage payloads.
const (
	StageStatusStarted   = "started"
	StageStatusCompleted = "completed"
	StageStatusFailed    = "failed"
)

type marker struct {
	prefix string
	typ    EventType
}

// markers are tested in order; the first match wins.
var markers = []marker{
	{"[STDERR] ", TypeStderr},
	{"[JSON] ", TypeJSON},
	{"[TOOL] ", TypeTool},
	{"[TOOL_RESULT] ", TypeToolResult},
	{"[TODO_PROGRESS] ", TypeTodoProgress},
	{"[RESULT] ", TypeResult},
	{"[STAGE_START] ", TypeStageStart},
	{"[STAGE_END] ", TypeStageEnd},
	{"[USER_PROMPT] ", TypeUserPrompt},
	{"[AWAITING_INPUT] ", TypeAwaitingInput},
}

// Marker returns the line prefix for t, or "" for stdout and unknown types.
func Marker(t EventType) string {
	for _, m := range markers {
		if m.typ == t {
			return m.prefix
		}
	}
	return ""
}

// Payload is the decoded body of an event.
// The set of implementations is closed: Text, Stage, Todo and Unparsed.
type Payload interface {
	isPayload()
}

// Text is a raw text payload.
type Text struct {
	Text string
}

// Stage is a decoded STAGE_START or STAGE_END payload.
type Stage struct {
	Info StageInfo
}

// Todo is a decoded TODO_PROGRESS payload.
type Todo struct {
	Progress domain.TodoProgress
}

// Unparsed is a structured payload that failed to decode.
// Raw is the payload as received; Err explains the failure.
type Unparsed struct {
	Err error
	Raw string
}

func (Text) isPayload()     {}
func (Stage) isPayload()    {}
func (Todo) isPayload()     {}
func (Unparsed) isPayload() {}

// StageInfo describes a stage boundary.
// Fields are ordered to minimize memory padding.
type StageInfo struct {
	Skills     []string `json:"skills,omitempty"`
	StageID    string   `json:"stageId"`
	StageName  string   `json:"stageName,omitempty"`
	Provider   string   `json:"provider,omitempty"`
	Status     string   `json:"status,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration,omitempty"` // Milliseconds
}

// Failed returns true if the stage ended with a failure.
func (s StageInfo) Failed() bool {
	return s.Status == StageStatusFailed
}

// Event is a single decoded protocol line.
type Event struct {
	Payload Payload
	Type    EventType
	Content string // Display content
}

// StageInfo returns the stage payload, if the event carries a decoded one.
func (e Event) StageInfo() (StageInfo, bool) {
	if s, ok := e.Payload.(Stage); ok {
		return s.Info, true
	}
	return StageInfo{}, false
}

// Todo returns the todo payload, if the event carries a decoded one.
func (e Event) Todo() (domain.TodoProgress, bool) {
	if t, ok := e.Payload.(Todo); ok {
		return t.Progress, true
	}
	return domain.TodoProgress{}, false
}

// DecodeErr returns the decode failure, if any.
func (e Event) DecodeErr() error {
	if u, ok := e.Payload.(Unparsed); ok {
		return u.Err
	}
	return nil
}

// IsOutput returns true for free-form output events that belong in the log buffer.
func (e Event) IsOutput() bool {
	switch e.Type {
	case TypeStdout, TypeStderr, TypeJSON, TypeTool, TypeToolResult, TypeResult:
		return true
	case TypeTodoProgress, TypeStageStart, TypeStageEnd, TypeUserPrompt, TypeAwaitingInput:
		return false
	}
	return false
}

// Decode errors.
var (
	ErrInvalidJSON    = errors.New("invalid JSON payload")
	ErrMissingStageID = errors.New("missing stageId")
	ErrInvalidStatus  = errors.New("stage end status must be completed or failed")
)

// Decode decodes a single line (or multi-line record message).
// It never fails: malformed structured payloads decode to Unparsed with the
// raw payload as content.
func Decode(line string) Event {
	for _, m := range markers {
		if !strings.HasPrefix(line, m.prefix) {
			continue
		}
		payload := line[len(m.prefix):]
		switch m.typ {
		case TypeStageStart, TypeStageEnd:
			return decodeStage(m.typ, payload)
		case TypeTodoProgress:
			return decodeTodo(payload)
		default:
			return Event{Type: m.typ, Content: payload, Payload: Text{Text: payload}}
		}
	}
	return Event{Type: TypeStdout, Content: line, Payload: Text{Text: line}}
}

func unparsed(t EventType, raw string, err error) Event {
	return Event{Type: t, Content: raw, Payload: Unparsed{Raw: raw, Err: err}}
}

func decodeStage(t EventType, payload string) Event {
	parsed := gjson.Parse(payload)
	if !gjson.Valid(payload) || !parsed.IsObject() {
		return unparsed(t, payload, ErrInvalidJSON)
	}
	if id := parsed.Get("stageId"); !id.Exists() || id.String() == "" {
		return unparsed(t, payload, ErrMissingStageID)
	}
	var info StageInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return unparsed(t, payload, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
	}
	if t == TypeStageStart {
		info.Status = StageStatusStarted
		return Event{Type: t, Content: formatStageStart(info), Payload: Stage{Info: info}}
	}
	switch info.Status {
	case StageStatusCompleted, StageStatusFailed:
	default:
		return unparsed(t, payload, fmt.Errorf("%w: %q", ErrInvalidStatus, info.Status))
	}
	return Event{Type: t, Content: formatStageEnd(info), Payload: Stage{Info: info}}
}

func decodeTodo(payload string) Event {
	if !gjson.Valid(payload) || !gjson.Parse(payload).IsObject() {
		return unparsed(TypeTodoProgress, payload, ErrInvalidJSON)
	}
	var tp domain.TodoProgress
	if err := json.Unmarshal([]byte(payload), &tp); err != nil {
		return unparsed(TypeTodoProgress, payload, fmt.Errorf("%w: %w", ErrInvalidJSON, err))
	}
	return Event{Type: TypeTodoProgress, Content: formatTodo(tp), Payload: Todo{Progress: tp}}
}

var categories = map[string]string{
	"analyze": "ANALYSIS",
	"plan":    "PLANNING",
	"code":    "IMPLEMENTATION",
	"review":  "VERIFICATION",
	"test":    "VERIFICATION",
	"check":   "VERIFICATION",
}

// Category returns the display category for a stage ID.
// Unknown IDs fall back to the upper-cased ID.
func Category(stageID string) string {
	if c, ok := categories[stageID]; ok {
		return c
	}
	return strings.ToUpper(stageID)
}

func formatStageStart(info StageInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "▶ Stage %s [%s]", info.StageID, Category(info.StageID))
	if info.Provider != "" {
		fmt.Fprintf(&b, " (%s)", info.Provider)
	}
	if len(info.Skills) > 0 {
		fmt.Fprintf(&b, " skills: %s", strings.Join(info.Skills, ", "))
	}
	return b.String()
}

func formatStageEnd(info StageInfo) string {
	glyph, verb := "✓", "Completed"
	if info.Failed() {
		glyph, verb = "✗", "Failed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s [%s]", glyph, verb, info.StageID, Category(info.StageID))
	if info.DurationMs > 0 {
		fmt.Fprintf(&b, " (%.1fs)", float64(info.DurationMs)/1000)
	}
	if info.Failed() && info.Error != "" {
		fmt.Fprintf(&b, ": %s", info.Error)
	}
	return b.String()
}

func formatTodo(tp domain.TodoProgress) string {
	s := fmt.Sprintf("Todos %d/%d completed", tp.Completed, tp.Total)
	if tp.InProgress > 0 {
		s += fmt.Sprintf(", %d in progress", tp.InProgress)
	}
	return s
}
