package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// CommandExecutor runs an external command to completion.
//
// The returned error is reserved for commands that could not be started or
// were interrupted; a process that ran and exited non-zero reports that
// through ExitStatus with a nil error.
type CommandExecutor interface {
	Execute(ctx context.Context, args []string) (ExitStatus, error)
}

// CommandFactory builds an *exec.Cmd for the given context and argv. Tests
// can inject a factory that invokes a helper process instead.
type CommandFactory func(ctx context.Context, args ...string) *exec.Cmd

// defaultCommandFactory runs args[0] with the remaining arguments.
func defaultCommandFactory(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, args[0], args[1:]...)
}

// ExecExecutor runs stages as child processes whose stdout and stderr pass
// straight through to the orchestrator's own streams.
type ExecExecutor struct {
	// Stdout and Stderr default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
	// Factory defaults to exec.CommandContext.
	Factory CommandFactory
}

// Execute implements CommandExecutor. It blocks until the child exits. The
// child is killed if ctx is cancelled.
func (e *ExecExecutor) Execute(ctx context.Context, args []string) (ExitStatus, error) {
	if len(args) == 0 {
		return -1, errors.New("empty command")
	}
	factory := e.Factory
	if factory == nil {
		factory = defaultCommandFactory
	}

	cmd := factory(ctx, args...)
	cmd.Stdout = e.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = e.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	// A killed child also yields an ExitError; report the cancellation.
	if ctx.Err() != nil {
		return -1, fmt.Errorf("interrupted: %w", ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Ctrl-C reaches the whole process group, so the child can die from
		// the signal before ctx is cancelled.
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() && interruptSignal(ws.Signal()) {
			return -1, fmt.Errorf("interrupted by %v: %w", ws.Signal(), context.Canceled)
		}
		return ExitStatus(exitErr.ExitCode()), nil
	}
	return -1, fmt.Errorf("failed to start %s: %w", args[0], err)
}

func interruptSignal(sig syscall.Signal) bool {
	return sig == syscall.SIGINT || sig == syscall.SIGTERM
}
