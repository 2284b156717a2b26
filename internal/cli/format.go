package cli

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/runoshun/git-cafe/internal/aggregator"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/protocol"
	"github.com/runoshun/git-cafe/internal/transcript"
)

var (
	colorBold    = color.New(color.Bold)
	colorFaint   = color.New(color.Faint)
	colorRed     = color.New(color.FgRed)
	colorGreen   = color.New(color.FgGreen)
	colorYellow  = color.New(color.FgYellow)
	colorCyan    = color.New(color.FgCyan)
	colorMagenta = color.New(color.FgMagenta)
)

// statusColor returns the color an order status is printed in.
func statusColor(s domain.OrderStatus) *color.Color {
	switch s {
	case domain.StatusRunning:
		return colorCyan
	case domain.StatusWaitingInput:
		return colorYellow
	case domain.StatusCompleted:
		return colorGreen
	case domain.StatusFailed:
		return colorRed
	case domain.StatusCancelled:
		return colorMagenta
	}
	return colorFaint
}

func formatStatus(s domain.OrderStatus) string {
	return statusColor(s).Sprint(s)
}

func stageStatusColor(s domain.StageStatus) *color.Color {
	switch s {
	case domain.StageRunning:
		return colorCyan
	case domain.StageCompleted:
		return colorGreen
	case domain.StageFailed:
		return colorRed
	}
	return colorFaint
}

func severityColor(s aggregator.Severity) *color.Color {
	switch s {
	case aggregator.SeverityError:
		return colorRed
	case aggregator.SeveritySuccess:
		return colorGreen
	case aggregator.SeverityWarning:
		return colorYellow
	}
	return nil
}

// formatAge renders t relative to now ("3 minutes ago"), or "-" when unset.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(100 * time.Millisecond).String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to max runes on a single line.
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// parseVariables parses KEY=VALUE pairs.
func parseVariables(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid variable %q: expected KEY=VALUE", p)
		}
		vars[key] = value
	}
	return vars, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// renderEvent formats one decoded transcript message for the terminal.
func renderEvent(ev protocol.Event) string {
	switch ev.Type {
	case protocol.TypeStageStart:
		return colorBold.Sprint("==> " + ev.Content)
	case protocol.TypeStageEnd:
		if info, ok := ev.StageInfo(); ok && info.Failed() {
			return colorRed.Sprint("==> " + ev.Content)
		}
		return colorGreen.Sprint("==> " + ev.Content)
	case protocol.TypeUserPrompt:
		return colorCyan.Sprint("> " + ev.Content)
	case protocol.TypeAwaitingInput:
		return colorYellow.Sprint("? " + ev.Content)
	case protocol.TypeStderr:
		return colorFaint.Sprint(ev.Content)
	}
	if c := severityColor(aggregator.Classify(ev.Content)); c != nil {
		return c.Sprint(ev.Content)
	}
	return ev.Content
}

// transcriptRenderer turns raw transcript bytes into rendered lines.
// The first skip bytes are discarded so a run can show only new output.
type transcriptRenderer struct {
	w    io.Writer
	buf  []byte
	skip int64
}

func (r *transcriptRenderer) Write(b []byte) (int, error) {
	n := len(b)
	if r.skip > 0 {
		if int64(len(b)) <= r.skip {
			r.skip -= int64(len(b))
			return n, nil
		}
		b = b[r.skip:]
		r.skip = 0
	}
	r.buf = append(r.buf, b...)
	for {
		i := bytes.IndexByte(r.buf, '\n')
		if i < 0 {
			return n, nil
		}
		line := string(r.buf[:i])
		r.buf = r.buf[i+1:]
		if _, msg, ok := transcript.ParseHeader(line); ok {
			line = renderEvent(protocol.Decode(msg))
		}
		if _, err := fmt.Fprintln(r.w, line); err != nil {
			return n, err
		}
	}
}
