// Package exectest helps running server subprocesses as part of tests.
//
// Used by redistest and beanstalktest to run redis-server and beanstalkd.
package exectest

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"
)

// ErrExited is returned by WaitReady if the process exits before becoming ready.
var ErrExited = errors.New("process exited")

// Background is a command running for the duration of a test.
type Background struct {
	tb      testing.TB
	Cmd     *exec.Cmd
	wg      sync.WaitGroup
	done    chan struct{}
	err     error
	errLock sync.Mutex
	// Log command output to tests.
	Name      string
	LogStdout bool
	LogStderr bool
}

// NewBackground prepares a command to run in the background of a test.
func NewBackground(tb testing.TB, cmd *exec.Cmd) *Background {
	return &Background{
		tb:   tb,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
}

// Start spawns a goroutine running the process in the background.
// After calling Start, accessing the provided exec.Cmd is unsafe until Close() returns.
// Can only be called once.
func (b *Background) Start() {
	var prefix string
	if b.Name != "" {
		prefix = b.Name + ": "
	}
	var captures []*PipeCapture
	if b.LogStdout {
		stdout := &PipeCapture{Prefix: prefix, TB: b.tb}
		b.Cmd.Stdout = stdout
		captures = append(captures, stdout)
	}
	if b.LogStderr {
		stderr := &PipeCapture{Prefix: prefix, TB: b.tb}
		b.Cmd.Stderr = stderr
		captures = append(captures, stderr)
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(b.done)
		err := b.Cmd.Run()
		for _, c := range captures {
			c.Flush()
		}
		b.errLock.Lock()
		b.err = err
		b.errLock.Unlock()
	}()
}

// WaitReady calls probe every interval until it succeeds, up to tries times.
// Returns ErrExited if the process exits first, or the last probe error.
func (b *Background) WaitReady(interval time.Duration, tries int, probe func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var err error
	for try := 0; try < tries; try++ {
		if try > 0 {
			select {
			case <-ticker.C:
			case <-b.done:
				if runErr := b.Err(); runErr != nil {
					return fmt.Errorf("%w: %s", ErrExited, runErr)
				}
				return ErrExited
			}
		}
		if err = probe(); err == nil {
			return nil
		}
	}
	return err
}

// Close must be called before the test context completes,
// regardless whether the command exited successfully.
// Close is idempotent.
func (b *Background) Close() {
	if b.Cmd.Process != nil {
		_ = b.Cmd.Process.Kill()
	}
	b.wg.Wait()
}

// Done returns a channel that closes when the command exits.
func (b *Background) Done() <-chan struct{} {
	return b.done
}

// Err returns any error that occurred with the process.
func (b *Background) Err() error {
	b.errLock.Lock()
	defer b.errLock.Unlock()
	return b.err
}

// PipeCapture forwards process output to the test log line by line.
type PipeCapture struct {
	TB     testing.TB
	Prefix string
	buf    bytes.Buffer
}

func (w *PipeCapture) Write(p []byte) (int, error) {
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.buf.Write(p)
			break
		}
		w.buf.Write(p[:i])
		w.line(w.buf.String())
		w.buf.Reset()
		p = p[i+1:]
	}
	return n, nil
}

// Flush logs any incomplete trailing line.
func (w *PipeCapture) Flush() {
	if w.buf.Len() > 0 {
		w.line(w.buf.String())
	}
	w.buf.Reset()
}

func (w *PipeCapture) line(s string) {
	w.TB.Log(w.Prefix + s)
}
