// Package status reports run progress: a JSON status file updated as the
// loop advances, and a rendered inventory of a working directory.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// States written to the status file.
const (
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Status represents the current state of a run.
// It is written to a JSON file for external tools to poll.
type Status struct {
	// State is "running", "completed" or "failed".
	State string `json:"state"`

	RunID   string `json:"run_id"`
	WorkDir string `json:"work_dir"`

	// Epoch is the epoch currently running (0-indexed).
	Epoch  int `json:"epoch"`
	Epochs int `json:"epochs"`

	// CurrentStage is the stage being run (nil between stages).
	CurrentStage *StageInfo `json:"current_stage,omitempty"`

	StartedAt time.Time `json:"started_at"`
	// Elapsed is the time since the run started (in nanoseconds).
	Elapsed int64 `json:"elapsed_ns"`

	// Tallies are running counts of stage outcomes.
	Tallies struct {
		Executed int `json:"executed"`
		Skipped  int `json:"skipped"`
		DryRun   int `json:"dry_run"`
	} `json:"tallies"`

	// Error is set when State is "failed".
	Error string `json:"error,omitempty"`
}

// StageInfo represents minimal information about a stage.
type StageInfo struct {
	Name    string `json:"name"`
	Epoch   int    `json:"epoch"`
	Command string `json:"command"`
}

// Writer manages writing status updates to a file.
type Writer struct {
	path string
}

// NewWriter creates a Writer that writes to path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path returns the status file location.
func (w *Writer) Path() string {
	return w.path
}

// Write updates the status file with the current state.
func (w *Writer) Write(status Status) error {
	// Marshal to JSON with indentation for readability.
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	// Write atomically: write to temp file, then rename.
	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Read loads the status file.
func (w *Writer) Read() (Status, error) {
	var s Status
	data, err := os.ReadFile(w.path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse status %s: %w", w.path, err)
	}
	return s, nil
}
