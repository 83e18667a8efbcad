// Package stage runs the external programs that make up a training epoch.
package stage

import (
	"errors"
	"fmt"
	"strings"
)

// Name identifies which external program a stage invokes.
type Name int

const (
	NameInit     Name = iota // model initialization
	NameExport               // checkpoint to exported model
	NameSelfPlay             // self-play records
	NameTrain                // training from records
)

// String returns a human-readable label for the stage name.
func (n Name) String() string {
	switch n {
	case NameInit:
		return "init"
	case NameExport:
		return "export"
	case NameSelfPlay:
		return "self-play"
	case NameTrain:
		return "train"
	default:
		return "unknown"
	}
}

// Stage is one external-program invocation within an epoch.
type Stage struct {
	Name  Name
	Epoch int
	Args  []string

	// SkipIfExists, when non-empty, is the artifact whose presence marks the
	// stage as already done.
	SkipIfExists string
}

// CommandLine renders Args joined by spaces, as echoed in notices.
func (s Stage) CommandLine() string {
	return strings.Join(s.Args, " ")
}

// ExitStatus is the exit code of a finished external process.
type ExitStatus int

// Success reports whether the process exited cleanly.
func (s ExitStatus) Success() bool {
	return s == 0
}

// StageExecutionFailedError is returned when an external stage could not be
// launched or exited with a non-zero status. It aborts the whole run.
type StageExecutionFailedError struct {
	Stage  Stage
	Status ExitStatus
	// Err is the launch or context error, nil for a plain non-zero exit.
	Err error
}

func (e *StageExecutionFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s (epoch %d) failed: %s: %v", e.Stage.Name, e.Stage.Epoch, e.Stage.CommandLine(), e.Err)
	}
	return fmt.Sprintf("stage %s (epoch %d) failed with exit status %d: %s", e.Stage.Name, e.Stage.Epoch, e.Status, e.Stage.CommandLine())
}

func (e *StageExecutionFailedError) Unwrap() error {
	return e.Err
}

// IsStageExecutionFailed reports whether err is or wraps a StageExecutionFailedError.
func IsStageExecutionFailed(err error) bool {
	var sf *StageExecutionFailedError
	return errors.As(err, &sf)
}
