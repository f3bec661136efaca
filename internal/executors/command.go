package executors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// MaxOutputBytes bounds the captured output kept per invocation
const MaxOutputBytes = 64 * 1024

// WaitDelay bounds how long Run waits for output pipes after the process group is killed
const WaitDelay = 5 * time.Second

// Command is one external tool invocation
type Command struct {
	Name string
	Args []string
	Dir  string
}

// String renders the command line for logs and summaries
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Outcome is the result of a completed process
type Outcome struct {
	ExitCode int
	Output   []byte
}

// CommandRunner runs external commands to completion
type CommandRunner interface {
	// Run blocks until the command exits. A non-zero exit is reported in
	// Outcome, not as an error; errors mean the process did not run to
	// completion.
	Run(ctx context.Context, cmd Command) (*Outcome, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements CommandRunner
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Outcome, error) {
	if c.Name == "" {
		return nil, fmt.Errorf("command name is empty")
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	// Set process group so cancellation kills the whole tool tree, not just the wrapper
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = WaitDelay

	// Capture stdout and stderr together, keeping only the tail
	out := &tailBuffer{max: MaxOutputBytes}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if ctx.Err() != nil {
		return &Outcome{ExitCode: -1, Output: out.Bytes()}, fmt.Errorf("execution cancelled: %w", ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &Outcome{ExitCode: exitErr.ExitCode(), Output: out.Bytes()}, nil
		}
		// Command failed to start (e.g., tool not installed)
		return nil, fmt.Errorf("failed to execute %s: %w", c.Name, err)
	}

	return &Outcome{ExitCode: 0, Output: out.Bytes()}, nil
}

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	b.buf.Write(p)
	if over := b.buf.Len() - b.max; over > 0 {
		b.buf.Next(over)
	}
	return n, nil
}

func (b *tailBuffer) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}
