package orderlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/runoshun/git-cafe/internal/domain"
)

// The inbox carries user input from other cafe processes to the process
// running an order's session. Each line holds one JSON-encoded message.

func (s *Store) inboxPath(orderID string) string {
	return filepath.Join(domain.OrderLogDir(s.dataDir), orderID+".inbox")
}

// Post queues message for the process running the order.
func (s *Store) Post(orderID, message string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(domain.OrderLogDir(s.dataDir), 0o750); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}
	f, err := os.OpenFile(s.inboxPath(orderID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open inbox %s: %w", orderID, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("post to inbox %s: %w", orderID, err)
	}
	return f.Close()
}

// Inbox calls fn for every message posted after the call until ctx is
// cancelled.
func (s *Store) Inbox(ctx context.Context, orderID string, fn func(message string)) error {
	r := &inboxReader{path: s.inboxPath(orderID), fn: fn}
	if info, err := os.Stat(r.path); err == nil {
		r.offset = info.Size()
	}
	defer r.close()
	return s.watch(ctx, r.path, r.read, nil)
}

type inboxReader struct {
	fn     func(string)
	f      *os.File
	path   string
	buf    []byte
	offset int64
}

func (r *inboxReader) read() error {
	if r.f == nil {
		f, err := os.Open(r.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("open inbox: %w", err)
		}
		if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
			_ = f.Close()
			return fmt.Errorf("seek inbox: %w", err)
		}
		r.f = f
	}

	data, err := io.ReadAll(r.f)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	r.buf = append(r.buf, data...)
	for {
		i := bytes.IndexByte(r.buf, '\n')
		if i < 0 {
			return nil
		}
		var message string
		if err := json.Unmarshal(r.buf[:i], &message); err == nil {
			r.fn(message)
		}
		r.buf = r.buf[i+1:]
	}
}

func (r *inboxReader) close() {
	if r.f != nil {
		_ = r.f.Close()
	}
}
