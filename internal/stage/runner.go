package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"rlloop/internal/artifact"
)

// Result describes what the runner did with a stage.
type Result struct {
	Stage    Stage
	Skipped  bool // output artifact already existed
	DryRun   bool // printed but not executed
	Started  bool // handed to the executor
	Status   ExitStatus
	Duration time.Duration
}

// Executed reports whether an external process was launched, whatever its
// outcome.
func (r Result) Executed() bool {
	return r.Started
}

// Runner executes stages one at a time, skipping those whose output
// artifact already exists.
type Runner struct {
	executor CommandExecutor
	out      io.Writer
	styles   Styles
	dryRun   bool
	exists   func(path string) bool
	logger   *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where notices are written (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithDryRun prints commands without executing them.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) { r.dryRun = dryRun }
}

// WithExistsFunc replaces the filesystem existence check (used in tests).
func WithExistsFunc(f func(path string) bool) Option {
	return func(r *Runner) { r.exists = f }
}

// WithLogger sets the structured logger (default no-op).
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a Runner that launches stages through executor.
func NewRunner(executor CommandExecutor, opts ...Option) *Runner {
	r := &Runner{
		executor: executor,
		out:      os.Stdout,
		exists:   artifact.Exists,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.styles = NewStyles(r.out)
	return r
}

// Run executes s synchronously unless its SkipIfExists artifact is present.
// A notice is written for every stage, run or skipped. A failed stage
// returns a *StageExecutionFailedError.
func (r *Runner) Run(ctx context.Context, s Stage) (Result, error) {
	res := Result{Stage: s}
	log := r.logger.With(
		zap.String("stage", s.Name.String()),
		zap.Int("epoch", s.Epoch),
	)

	if s.SkipIfExists != "" && r.exists(s.SkipIfExists) {
		writef(r.out, "%s\n", r.styles.Skip.Render(PrefixSkip+s.CommandLine()))
		log.Debug("stage skipped", zap.String("artifact", s.SkipIfExists))
		res.Skipped = true
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("stage %s (epoch %d) not started: %w", s.Name, s.Epoch, err)
	}

	if r.dryRun {
		writef(r.out, "%s\n", r.styles.DryRun.Render(PrefixDryRun+s.CommandLine()))
		res.DryRun = true
		return res, nil
	}

	writef(r.out, "%s\n", r.styles.Command.Render(s.CommandLine()))
	log.Debug("stage starting", zap.Strings("args", s.Args))

	start := time.Now()
	res.Started = true
	status, err := r.executor.Execute(ctx, s.Args)
	res.Status = status
	res.Duration = time.Since(start)

	if err != nil {
		log.Error("stage could not run", zap.Error(err))
		return res, &StageExecutionFailedError{Stage: s, Status: status, Err: err}
	}
	if !status.Success() {
		log.Error("stage exited with failure", zap.Int("exit_status", int(status)))
		return res, &StageExecutionFailedError{Stage: s, Status: status}
	}

	log.Debug("stage finished", zap.Duration("duration", res.Duration))
	return res, nil
}
