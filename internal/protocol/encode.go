package protocol

import (
	"encoding/json"
	"time"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Line returns text tagged with the marker for t.
// Stdout text is returned unchanged.
func Line(t EventType, text string) string {
	return Marker(t) + text
}

// Encode returns the wire form of e.
// Structured payloads are re-marshalled; everything else uses Content.
func Encode(e Event) string {
	switch p := e.Payload.(type) {
	case Stage:
		return encodeJSON(e.Type, p.Info)
	case Todo:
		return encodeJSON(e.Type, p.Progress)
	case Unparsed:
		return Line(e.Type, p.Raw)
	}
	return Line(e.Type, e.Content)
}

// StageStartLine returns a STAGE_START line.
func StageStartLine(stageID, stageName, provider string, skills []string) string {
	return encodeJSON(TypeStageStart, StageInfo{
		StageID:   stageID,
		StageName: stageName,
		Provider:  provider,
		Skills:    skills,
	})
}

// StageEndLine returns a STAGE_END line. A nil err means the stage completed.
func StageEndLine(stageID string, duration time.Duration, err error) string {
	info := StageInfo{
		StageID:    stageID,
		Status:     StageStatusCompleted,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		info.Status = StageStatusFailed
		info.Error = err.Error()
	}
	return encodeJSON(TypeStageEnd, info)
}

// TodoProgressLine returns a TODO_PROGRESS line.
func TodoProgressLine(tp domain.TodoProgress) string {
	return encodeJSON(TypeTodoProgress, tp)
}

func encodeJSON(t EventType, v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Payload types are plain structs; marshalling cannot fail.
		return Line(t, "{}")
	}
	return Line(t, string(data))
}
