// Package artifact resolves the on-disk artifacts of a training run.
//
// Layout of a working directory:
//
//	<workDir>/cp_<n>/              checkpoint (programs receive the prefix cp_<n>/cp)
//	<workDir>/sm_<n>/              exported model
//	<workDir>/records/records_<n>.bin
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// RecordsDirName is the subdirectory holding one records file per epoch.
	RecordsDirName = "records"
	// CheckpointPrefixName is the file prefix programs write inside a checkpoint dir.
	CheckpointPrefixName = "cp"
)

// Kind identifies one of the artifacts produced per epoch.
type Kind int

const (
	KindCheckpoint    Kind = iota // cp_<n>/
	KindExportedModel             // sm_<n>/
	KindRecords                   // records/records_<n>.bin
)

// String returns a human-readable label for the kind.
func (k Kind) String() string {
	switch k {
	case KindCheckpoint:
		return "checkpoint"
	case KindExportedModel:
		return "exported_model"
	case KindRecords:
		return "records"
	default:
		return "unknown"
	}
}

// Layout computes artifact paths under a working directory.
// All methods except Prepare are free of side effects.
type Layout struct {
	workDir string
}

// NewLayout creates a layout rooted at workDir.
func NewLayout(workDir string) Layout {
	return Layout{workDir: workDir}
}

// WorkDir returns the root of the layout.
func (l Layout) WorkDir() string {
	return l.workDir
}

// RecordsDir returns <workDir>/records.
func (l Layout) RecordsDir() string {
	return filepath.Join(l.workDir, RecordsDirName)
}

// PathFor returns the path of the artifact of the given kind for epoch.
// The result depends only on the working directory, epoch and kind.
func (l Layout) PathFor(epoch int, kind Kind) (string, error) {
	if epoch < 0 {
		return "", fmt.Errorf("epoch %d: must be >= 0", epoch)
	}
	n := strconv.Itoa(epoch)
	switch kind {
	case KindCheckpoint:
		return filepath.Join(l.workDir, "cp_"+n), nil
	case KindExportedModel:
		return filepath.Join(l.workDir, "sm_"+n), nil
	case KindRecords:
		return filepath.Join(l.RecordsDir(), "records_"+n+".bin"), nil
	default:
		return "", fmt.Errorf("unknown artifact kind %d", int(kind))
	}
}

// mustPath is PathFor for callers that already guarantee epoch >= 0.
func (l Layout) mustPath(epoch int, kind Kind) string {
	p, err := l.PathFor(epoch, kind)
	if err != nil {
		panic(err)
	}
	return p
}

// Checkpoint returns the checkpoint directory for epoch. Panics if epoch < 0.
func (l Layout) Checkpoint(epoch int) string {
	return l.mustPath(epoch, KindCheckpoint)
}

// CheckpointPrefix returns the prefix passed to programs reading or writing
// the checkpoint for epoch.
func (l Layout) CheckpointPrefix(epoch int) string {
	return filepath.Join(l.Checkpoint(epoch), CheckpointPrefixName)
}

// ExportedModel returns the exported model directory for epoch.
func (l Layout) ExportedModel(epoch int) string {
	return l.mustPath(epoch, KindExportedModel)
}

// Records returns the records file for epoch.
func (l Layout) Records(epoch int) string {
	return l.mustPath(epoch, KindRecords)
}

// Prepare creates the working directory and the records directory.
// Safe to call on an existing layout.
func (l Layout) Prepare() error {
	if err := os.MkdirAll(l.RecordsDir(), 0755); err != nil {
		return fmt.Errorf("create records dir: %w", err)
	}
	return nil
}

// Exists reports whether path exists as a file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EpochArtifacts records which artifacts are present for one epoch.
type EpochArtifacts struct {
	Epoch         int
	Checkpoint    bool
	ExportedModel bool
	Records       bool
}

// Complete reports whether all three artifacts exist.
func (a EpochArtifacts) Complete() bool {
	return a.Checkpoint && a.ExportedModel && a.Records
}

// Inventory reports artifact presence for epochs 0..epochs inclusive; the
// last entry covers the checkpoint and export produced by the final epoch.
func (l Layout) Inventory(epochs int) []EpochArtifacts {
	if epochs < 0 {
		return nil
	}
	out := make([]EpochArtifacts, 0, epochs+1)
	for e := 0; e <= epochs; e++ {
		out = append(out, EpochArtifacts{
			Epoch:         e,
			Checkpoint:    Exists(l.Checkpoint(e)),
			ExportedModel: Exists(l.ExportedModel(e)),
			Records:       Exists(l.Records(e)),
		})
	}
	return out
}
