package codeql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrExternalTool is matched by every ToolError.
var ErrExternalTool = errors.New("external tool failed")

// ToolError reports a subprocess that could not run or exited non-zero.
type ToolError struct {
	Command  string
	ExitCode int
	Err      error
}

// Error implements error.
func (e *ToolError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}

	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is matches ErrExternalTool.
func (e *ToolError) Is(target error) bool {
	return target == ErrExternalTool
}

// Command is one subprocess invocation.
type Command struct {
	Path string
	Args []string
	// Env replaces the inherited environment when non-nil.
	Env []string
	Dir string
	// Stdout captures standard output; nil streams it to the runner's writer.
	Stdout io.Writer
}

// String renders the command line.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner executes commands to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts cmd and waits for it. Cancelling ctx kills the process.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	proc := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	proc.Env = cmd.Env
	proc.Dir = cmd.Dir
	proc.Stdout = firstWriter(cmd.Stdout, r.Stdout, os.Stdout)
	proc.Stderr = firstWriter(r.Stderr, os.Stderr)

	err := proc.Run()
	if err == nil {
		return nil
	}

	toolErr := &ToolError{Command: cmd.String(), Err: err}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}

	return toolErr
}

func firstWriter(writers ...io.Writer) io.Writer {
	for _, w := range writers {
		if w != nil {
			return w
		}
	}

	return io.Discard
}

var _ Runner = (*ExecRunner)(nil)
