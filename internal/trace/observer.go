package trace

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"rlloop/internal/loop"
	"rlloop/internal/stage"
)

// Attribute keys, all under the rlloop.* namespace.
const (
	KeyRunID      = attribute.Key("rlloop.run.id")
	KeyWorkDir    = attribute.Key("rlloop.work_dir")
	KeyEpochs     = attribute.Key("rlloop.epochs")
	KeyGames      = attribute.Key("rlloop.games")
	KeyDryRun     = attribute.Key("rlloop.dry_run")
	KeyEpoch      = attribute.Key("rlloop.epoch")
	KeyStage      = attribute.Key("rlloop.stage")
	KeyCommand    = attribute.Key("rlloop.command")
	KeyArtifact   = attribute.Key("rlloop.artifact")
	KeySkipped    = attribute.Key("rlloop.skipped")
	KeyExitStatus = attribute.Key("rlloop.exit_status")
	KeyExecuted   = attribute.Key("rlloop.executed")
	KeySkipCount  = attribute.Key("rlloop.skipped_count")
	KeyCompleted  = attribute.Key("rlloop.epochs_completed")
)

// Observer implements loop.Observer and records one span per run, epoch and
// stage. Stage spans are children of their epoch span.
type Observer struct {
	tracer oteltrace.Tracer
	root   context.Context

	mu        sync.Mutex
	loopCtx   context.Context
	loopSpan  oteltrace.Span
	epochCtx  context.Context
	epochSpan oteltrace.Span
	stageSpan oteltrace.Span
}

var _ loop.Observer = (*Observer)(nil)

// NewObserver creates an observer that starts spans from tp. ctx is the
// parent of the run span.
func NewObserver(ctx context.Context, tp oteltrace.TracerProvider) *Observer {
	return &Observer{
		tracer: tp.Tracer(TracerName),
		root:   ctx,
	}
}

// OnLoopStart begins the run span.
func (o *Observer) OnLoopStart(info loop.LoopInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.loopCtx, o.loopSpan = o.tracer.Start(o.root, "rlloop.run",
		oteltrace.WithAttributes(
			KeyRunID.String(info.RunID),
			KeyWorkDir.String(info.WorkDir),
			KeyEpochs.Int(info.Epochs),
			KeyGames.Int(info.Games),
			KeyDryRun.Bool(info.DryRun),
		))
}

// OnEpochStart begins an epoch span.
func (o *Observer) OnEpochStart(epoch int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loopSpan == nil {
		return
	}
	o.epochCtx, o.epochSpan = o.tracer.Start(o.loopCtx, fmt.Sprintf("epoch-%d", epoch),
		oteltrace.WithAttributes(KeyEpoch.Int(epoch)))
}

// OnStageStart begins a stage span.
func (o *Observer) OnStageStart(s stage.Stage) {
	o.mu.Lock()
	defer o.mu.Unlock()

	parent := o.epochCtx
	if o.epochSpan == nil {
		parent = o.loopCtx
	}
	if parent == nil {
		return
	}
	_, o.stageSpan = o.tracer.Start(parent, s.Name.String(),
		oteltrace.WithAttributes(
			KeyStage.String(s.Name.String()),
			KeyEpoch.Int(s.Epoch),
			KeyCommand.String(s.CommandLine()),
			KeyArtifact.String(s.SkipIfExists),
		))
}

// OnStageEnd completes the stage span.
func (o *Observer) OnStageEnd(res stage.Result, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stageSpan == nil {
		return
	}
	o.stageSpan.SetAttributes(
		KeySkipped.Bool(res.Skipped),
		KeyDryRun.Bool(res.DryRun),
	)
	if res.Executed() {
		o.stageSpan.SetAttributes(KeyExitStatus.Int(int(res.Status)))
	}
	endWithError(o.stageSpan, err)
	o.stageSpan = nil
}

// OnEpochEnd completes the epoch span.
func (o *Observer) OnEpochEnd(int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.epochSpan == nil {
		return
	}
	o.epochSpan.End()
	o.epochSpan = nil
	o.epochCtx = nil
}

// OnLoopEnd completes the run span, closing an epoch span left open by a
// failed stage.
func (o *Observer) OnLoopEnd(summary *loop.Summary, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.epochSpan != nil {
		endWithError(o.epochSpan, err)
		o.epochSpan = nil
		o.epochCtx = nil
	}
	if o.loopSpan == nil {
		return
	}
	if summary != nil {
		o.loopSpan.SetAttributes(
			KeyExecuted.Int(summary.Executed),
			KeySkipCount.Int(summary.Skipped),
			KeyCompleted.Int(summary.Epochs),
		)
	}
	endWithError(o.loopSpan, err)
	o.loopSpan = nil
	o.loopCtx = nil
}

func endWithError(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
