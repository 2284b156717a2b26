// Package orderlog persists per-order transcripts under <data>/logs/orders.
package orderlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/transcript"
)

// Ensure Store implements domain.TranscriptStore.
var _ domain.TranscriptStore = (*Store)(nil)

// pollInterval is the fallback re-read period when following a transcript.
const pollInterval = 500 * time.Millisecond

// Store reads and appends order transcripts.
type Store struct {
	dataDir string
	mu      sync.Mutex
}

// New creates a transcript store for the given data directory.
func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Path returns the transcript path of an order.
func (s *Store) Path(orderID string) string {
	return domain.OrderLogPath(s.dataDir, orderID)
}

// Append writes a record to the order's transcript.
func (s *Store) Append(orderID string, at time.Time, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(domain.OrderLogDir(s.dataDir), 0o750); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}
	f, err := os.OpenFile(s.Path(orderID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // Transcript readable by owner and group
	if err != nil {
		return fmt.Errorf("open transcript %s: %w", orderID, err)
	}
	if _, err := io.WriteString(f, transcript.FormatRecord(at, msg)); err != nil {
		_ = f.Close()
		return fmt.Errorf("append transcript %s: %w", orderID, err)
	}
	return f.Close()
}

// Open opens the transcript for reading.
// The error wraps fs.ErrNotExist if the order has no transcript.
func (s *Store) Open(orderID string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(orderID))
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", orderID, err)
	}
	return f, nil
}

// Remove deletes the transcript and the inbox. Missing files are not an error.
func (s *Store) Remove(orderID string) error {
	if err := os.Remove(s.Path(orderID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove transcript %s: %w", orderID, err)
	}
	if err := os.Remove(s.inboxPath(orderID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove inbox %s: %w", orderID, err)
	}
	return nil
}

// Follow copies the transcript to w and keeps copying appended bytes until
// ctx is cancelled or done reports true. done may be nil.
// The transcript does not need to exist yet.
func (s *Store) Follow(ctx context.Context, orderID string, w io.Writer, done func() bool) error {
	t := &tail{path: s.Path(orderID), w: w}
	defer t.close()
	return s.watch(ctx, t.path, t.copy, done)
}

// watch calls step once, then again whenever path changes or the poll
// interval elapses, until ctx is cancelled or done reports true.
func (s *Store) watch(ctx context.Context, path string, step func() error, done func() bool) error {
	dir := domain.OrderLogDir(s.dataDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if err := step(); err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := step(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", filepath.Base(path), err)
		case <-ticker.C:
			// Watch events can be coalesced or dropped; catch up periodically.
			if err := step(); err != nil {
				return err
			}
			if done != nil && done() {
				// Drain anything written between the last step and completion.
				return step()
			}
		}
	}
}

// tail copies new bytes of a growing file.
type tail struct {
	w    io.Writer
	f    *os.File
	path string
}

func (t *tail) copy() error {
	if t.f == nil {
		f, err := os.Open(t.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		t.f = f
	}
	if _, err := io.Copy(t.w, t.f); err != nil {
		return fmt.Errorf("copy transcript: %w", err)
	}
	return nil
}

func (t *tail) close() {
	if t.f != nil {
		_ = t.f.Close()
	}
}
