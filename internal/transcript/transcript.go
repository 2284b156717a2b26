// Package transcript reconstructs timestamped records from a persisted
// order log, where one record may span several physical lines.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the layout used in record headers.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// maxLineSize bounds a single physical line.
const maxLineSize = 4 * 1024 * 1024

// Record is a single logical log entry.
type Record struct {
	Timestamp time.Time
	Message   string
}

// headerPattern matches "[<ISO-8601 timestamp>] <message>".
var headerPattern = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2}))\] ?(.*)$`)

// FormatRecord renders a record header line for msg.
// Multi-line messages produce continuation lines after the header.
func FormatRecord(t time.Time, msg string) string {
	return fmt.Sprintf("[%s] %s\n", t.UTC().Format(TimestampLayout), msg)
}

// ParseHeader returns the timestamp and first message line of a header line.
// ok is false for continuation lines.
func ParseHeader(line string) (at time.Time, msg string, ok bool) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, "", false
	}
	ts, err := time.Parse(time.RFC3339Nano, m[1])
	if err != nil {
		return time.Time{}, "", false
	}
	return ts, m[2], true
}

// Reconstruct reads r and returns its records in order.
// Lines before the first header become records stamped with now().
func Reconstruct(r io.Reader, now func() time.Time) ([]Record, error) {
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []Record
		current *Record
		blanks  int // Blank lines seen inside the open record, not yet attached
	)
	flush := func() {
		if current != nil {
			records = append(records, *current)
			current = nil
		}
		blanks = 0
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if ts, msg, ok := ParseHeader(line); ok {
			flush()
			current = &Record{Timestamp: ts, Message: msg}
			continue
		}

		if strings.TrimSpace(line) == "" {
			if current != nil {
				blanks++
			}
			continue
		}

		if current == nil {
			// Stray lines outside any record are recovered one per record.
			records = append(records, Record{Timestamp: now(), Message: line})
			continue
		}
		current.Message += strings.Repeat("\n", blanks) + "\n" + line
		blanks = 0
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	flush()
	return records, nil
}
