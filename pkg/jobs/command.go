// Package jobs holds the job types known to the tubeq binary.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.od2.network/tubeq/pkg/queue"
)

// CommandName is the registry name of Command.
const CommandName = "command"

// Register adds all job types of this package to the registry.
func Register(r *queue.Registry) {
	r.Register(CommandName, func() queue.Job { return new(Command) })
}

// Command runs a shell command with "sh -c".
type Command struct {
	Command    string `json:"command"`
	MaxRetries int    `json:"max_retries,omitempty"`
}

// MaxAttempts returns the number of retries allowed after the first run.
func (c *Command) MaxAttempts() int {
	return c.MaxRetries
}

// Handle runs the command, failing on a non-zero exit status.
// The shell and everything it spawned get killed if the context gets cancelled.
func (c *Command) Handle(ctx context.Context) error {
	if c.Command == "" {
		return fmt.Errorf("empty command")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var stderr bytes.Buffer
	cmd := exec.Command("sh", "-c", c.Command)
	cmd.Stderr = &stderr
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// Children keep the output pipes open, so Wait would block on them.
			killProcessGroup(cmd)
		case <-done:
		}
	}()
	if err := cmd.Wait(); err != nil {
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return fmt.Errorf("command failed: %w: %s", err, msg)
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}
