// Package executor runs provider commands and streams their output line by line.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// maxLineSize bounds a single output line.
const maxLineSize = 4 * 1024 * 1024

// waitDelay is how long Wait keeps pipes open after the shell is killed.
const waitDelay = 2 * time.Second

// Stream identifies the pipe a line was read from.
type Stream int

// Streams.
const (
	Stdout Stream = iota
	Stderr
)

// LineFunc receives each output line. Calls are serialized.
type LineFunc func(stream Stream, line string)

// Command is a shell script to run.
type Command struct {
	Env    []string // Appended to the current environment
	Script string   // Passed to sh -c
	Dir    string
}

// Client starts shell commands.
type Client struct {
	shell string
}

// NewClient creates a new command executor client.
func NewClient() *Client {
	return &Client{shell: "sh"}
}

// Process is a running command.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *lineWriter
	stderr *lineWriter
	mu     sync.Mutex
}

// Start launches cmd. Output lines are delivered to onLine until the
// process exits. Cancelling ctx kills the process.
func (c *Client) Start(ctx context.Context, cmd Command, onLine LineFunc) (*Process, error) {
	if cmd.Script == "" {
		return nil, errors.New("start command: empty script")
	}

	// #nosec G204 - the script is rendered from the user's provider configuration
	execCmd := exec.CommandContext(ctx, c.shell, "-c", cmd.Script)
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)
	execCmd.WaitDelay = waitDelay

	var deliver sync.Mutex
	emit := func(stream Stream, line string) {
		deliver.Lock()
		defer deliver.Unlock()
		onLine(stream, line)
	}
	stdout := &lineWriter{stream: Stdout, emit: emit}
	stderr := &lineWriter{stream: Stderr, emit: emit}
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr

	stdin, err := execCmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	if err := execCmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}
	return &Process{cmd: execCmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

// Write sends message followed by a newline to the process's stdin.
func (p *Process) Write(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.stdin, message+"\n"); err != nil {
		return fmt.Errorf("write stdin: %w", err)
	}
	return nil
}

// Wait waits for the process to exit and delivers any unterminated last line.
func (p *Process) Wait() error {
	err := p.cmd.Wait()
	p.stdout.flush()
	p.stderr.flush()
	return err
}

// Run starts cmd and waits for it.
func (c *Client) Run(ctx context.Context, cmd Command, onLine LineFunc) error {
	p, err := c.Start(ctx, cmd, onLine)
	if err != nil {
		return err
	}
	_ = p.stdin.Close()
	return p.Wait()
}

// lineWriter splits written bytes into lines.
// Lines longer than maxLineSize are delivered in chunks.
type lineWriter struct {
	emit   LineFunc
	buf    []byte
	stream Stream
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.buf = append(w.buf, b...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.stream, strings.TrimSuffix(string(w.buf[:i]), "\r"))
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) >= maxLineSize {
		w.flush()
	}
	return len(b), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) == 0 {
		return
	}
	w.emit(w.stream, string(w.buf))
	w.buf = nil
}
