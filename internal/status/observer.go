package status

import (
	"time"

	"go.uber.org/zap"

	"rlloop/internal/loop"
	"rlloop/internal/stage"
)

// Observer implements loop.Observer by rewriting the status file after
// every callback. Write failures are logged and never abort the run.
type Observer struct {
	writer *Writer
	logger *zap.Logger
	now    func() time.Time
	status Status
}

var _ loop.Observer = (*Observer)(nil)

// NewObserver creates a status observer writing through w.
func NewObserver(w *Writer, logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{writer: w, logger: logger, now: time.Now}
}

func (o *Observer) flush() {
	o.status.Elapsed = int64(o.now().Sub(o.status.StartedAt))
	if err := o.writer.Write(o.status); err != nil {
		o.logger.Warn("status file not updated", zap.String("path", o.writer.Path()), zap.Error(err))
	}
}

// OnLoopStart resets the status for a new run.
func (o *Observer) OnLoopStart(info loop.LoopInfo) {
	o.status = Status{
		State:     StateRunning,
		RunID:     info.RunID,
		WorkDir:   info.WorkDir,
		Epochs:    info.Epochs,
		StartedAt: o.now(),
	}
	o.flush()
}

// OnEpochStart records the current epoch.
func (o *Observer) OnEpochStart(epoch int) {
	o.status.Epoch = epoch
	o.flush()
}

// OnStageStart records the running stage.
func (o *Observer) OnStageStart(s stage.Stage) {
	o.status.CurrentStage = &StageInfo{
		Name:    s.Name.String(),
		Epoch:   s.Epoch,
		Command: s.CommandLine(),
	}
	o.flush()
}

// OnStageEnd updates the tallies.
func (o *Observer) OnStageEnd(res stage.Result, _ error) {
	switch {
	case res.Skipped:
		o.status.Tallies.Skipped++
	case res.DryRun:
		o.status.Tallies.DryRun++
	case res.Executed():
		o.status.Tallies.Executed++
	}
	o.status.CurrentStage = nil
	o.flush()
}

// OnEpochEnd is a no-op; the next OnEpochStart or OnLoopEnd updates the file.
func (o *Observer) OnEpochEnd(int) {}

// OnLoopEnd records the final state.
func (o *Observer) OnLoopEnd(_ *loop.Summary, err error) {
	o.status.State = StateCompleted
	if err != nil {
		o.status.State = StateFailed
		o.status.Error = err.Error()
	}
	o.flush()
}
