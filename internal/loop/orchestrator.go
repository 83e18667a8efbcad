package loop

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rlloop/internal/config"
	"rlloop/internal/stage"
)

// Summary holds the aggregate results of an Orchestrator.Run invocation.
type Summary struct {
	RunID    string
	Epochs   int // epochs fully completed (run or skipped)
	Executed int
	Skipped  int
	DryRun   int
	Duration time.Duration

	// Failed is the stage that aborted the run, nil on success.
	Failed *stage.Stage
}

// Orchestrator runs the epoch loop over one working directory. A single
// orchestrator instance per working directory is assumed.
type Orchestrator struct {
	cfg      config.Config
	planner  Planner
	runner   *stage.Runner
	observer Observer
	out      io.Writer
	logger   *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver attaches a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithOutput sets where the end-of-run summary is written (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLogger sets the structured logger (default no-op).
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New validates cfg and creates an orchestrator that runs stages through runner.
func New(cfg config.Config, runner *stage.Runner, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, fmt.Errorf("nil stage runner")
	}
	o := &Orchestrator{
		cfg:      cfg,
		planner:  NewPlanner(cfg),
		runner:   runner,
		observer: NoopObserver{},
		out:      os.Stdout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.observer == nil {
		o.observer = NoopObserver{}
	}
	return o, nil
}

// Run executes epochs 0..Epochs-1. The first failing stage aborts the run:
// no later stage or epoch is attempted and existing artifacts are left as
// they are.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := o.logger.With(zap.String("run_id", summary.RunID))

	info := LoopInfo{
		RunID:   summary.RunID,
		WorkDir: o.cfg.WorkDir,
		Epochs:  o.cfg.Epochs,
		Games:   o.cfg.Games,
		DryRun:  o.cfg.DryRun,
	}
	o.observer.OnLoopStart(info)
	log.Info("loop starting",
		zap.String("work_dir", info.WorkDir),
		zap.Int("epochs", info.Epochs),
		zap.Int("games", info.Games),
		zap.Bool("dry_run", info.DryRun))

	err := o.run(ctx, summary, log)
	summary.Duration = time.Since(start)

	o.observer.OnLoopEnd(summary, err)
	o.printSummary(summary, err)
	if err != nil {
		log.Error("loop aborted", zap.Error(err))
		return summary, err
	}
	log.Info("loop complete",
		zap.Int("executed", summary.Executed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (o *Orchestrator) run(ctx context.Context, summary *Summary, log *zap.Logger) error {
	if !o.cfg.DryRun {
		if err := o.planner.Layout().Prepare(); err != nil {
			return fmt.Errorf("prepare %s: %w", o.cfg.WorkDir, err)
		}
	}

	for e := 0; e < o.cfg.Epochs; e++ {
		o.observer.OnEpochStart(e)
		log.Debug("epoch starting", zap.Int("epoch", e))

		for _, s := range o.planner.Epoch(e) {
			o.observer.OnStageStart(s)
			res, err := o.runner.Run(ctx, s)
			o.observer.OnStageEnd(res, err)

			switch {
			case res.Skipped:
				summary.Skipped++
			case res.DryRun:
				summary.DryRun++
			case res.Executed():
				summary.Executed++
			}
			if err != nil {
				failed := s
				summary.Failed = &failed
				return fmt.Errorf("epoch %d: %w", e, err)
			}
		}

		o.observer.OnEpochEnd(e)
		summary.Epochs++
	}
	return nil
}

func (o *Orchestrator) printSummary(s *Summary, err error) {
	styles := stage.NewStyles(o.out)
	if err != nil {
		writef(o.out, "\nLoop aborted:\n")
		writef(o.out, "%s\n", styles.Error.Render("  ✗ "+err.Error()))
	} else {
		writef(o.out, "\nLoop complete:\n")
	}
	writef(o.out, "  %s %d/%d epochs\n", styles.Success.Render("✓"), s.Epochs, o.cfg.Epochs)
	writef(o.out, "  ● %d stages executed\n", s.Executed)
	if s.Skipped > 0 {
		writef(o.out, "  %s\n", styles.Muted.Render(fmt.Sprintf("⊘ %d stages skipped", s.Skipped)))
	}
	if s.DryRun > 0 {
		writef(o.out, "  %s\n", styles.DryRun.Render(fmt.Sprintf("~ %d stages not run (dry-run)", s.DryRun)))
	}
	writef(o.out, "  Duration: %s\n", formatDuration(s.Duration))
}

// writef writes formatted output, ignoring errors.
func writef(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
