package stage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test-helper process
// ---------------------------------------------------------------------------
//
// Tests re-exec the test binary with a sentinel env var so the child
// behaves as a fake stage program. This exercises exit status handling and
// stream pass-through without the real training programs.

func TestHelperProcess(t *testing.T) {
	if os.Getenv("RLLOOP_TEST_HELPER") != "1" {
		return // not the helper invocation
	}
	args := os.Args[1:]
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	switch os.Getenv("RLLOOP_TEST_MODE") {
	case "echo":
		for i, a := range args {
			if i > 0 {
				fmt.Print(" ")
			}
			fmt.Print(a)
		}
	case "stderr":
		fmt.Fprint(os.Stderr, "stage error output")
	case "exit":
		code, _ := strconv.Atoi(os.Getenv("RLLOOP_EXIT_CODE"))
		os.Exit(code)
	case "slow":
		time.Sleep(30 * time.Second)
	case "terminated":
		_ = syscall.Kill(os.Getpid(), syscall.SIGTERM)
		time.Sleep(30 * time.Second)
	default:
		fmt.Fprintln(os.Stderr, "unknown RLLOOP_TEST_MODE")
		os.Exit(2)
	}
	os.Exit(0)
}

// helperFactory returns a CommandFactory that re-invokes the current test
// binary as the helper process.
func helperFactory(mode string, envExtra ...string) CommandFactory {
	return func(ctx context.Context, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=^TestHelperProcess$", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"RLLOOP_TEST_HELPER=1",
			"RLLOOP_TEST_MODE="+mode,
		)
		cmd.Env = append(cmd.Env, envExtra...)
		return cmd
	}
}

func TestExecExecutor_PassesStdoutThrough(t *testing.T) {
	var stdout bytes.Buffer
	e := &ExecExecutor{Stdout: &stdout, Stderr: &bytes.Buffer{}, Factory: helperFactory("echo")}

	status, err := e.Execute(context.Background(), []string{"python", "-m", "othello_train.playout_v1", "--games", "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Success() {
		t.Errorf("expected success, got %d", status)
	}
	want := "python -m othello_train.playout_v1 --games 5"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestExecExecutor_PassesStderrThrough(t *testing.T) {
	var stderr bytes.Buffer
	e := &ExecExecutor{Stdout: &bytes.Buffer{}, Stderr: &stderr, Factory: helperFactory("stderr")}

	if _, err := e.Execute(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stderr.String() != "stage error output" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestExecExecutor_NonZeroExit(t *testing.T) {
	e := &ExecExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Factory: helperFactory("exit", "RLLOOP_EXIT_CODE=42")}

	status, err := e.Execute(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error, got %v", err)
	}
	if status != 42 {
		t.Errorf("status = %d, want 42", status)
	}
}

func TestExecExecutor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	e := &ExecExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Factory: helperFactory("slow")}

	start := time.Now()
	_, err := e.Execute(ctx, []string{"x"})
	if err == nil {
		t.Fatal("expected error for cancelled child")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("child was not killed on cancellation")
	}
}

func TestExecExecutor_ChildKilledByInterrupt(t *testing.T) {
	e := &ExecExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Factory: helperFactory("terminated")}

	// ctx stays live: the signal reached the child first.
	_, err := e.Execute(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error for a child killed by SIGTERM")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecExecutor_MissingBinary(t *testing.T) {
	e := &ExecExecutor{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	_, err := e.Execute(context.Background(), []string{"/nonexistent/rlloop-stage-binary"})
	if err == nil {
		t.Fatal("expected launch error")
	}
}

func TestExecExecutor_EmptyCommand(t *testing.T) {
	e := &ExecExecutor{}
	if _, err := e.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty command")
	}
}
