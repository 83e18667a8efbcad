package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rlloop/internal/artifact"
	"rlloop/internal/config"
	"rlloop/internal/loop"
	"rlloop/internal/stage"
	"rlloop/internal/status"
	"rlloop/internal/trace"
)

// Process exit codes.
const (
	exitOK          = 0
	exitError       = 1
	exitInvalidArgs = 2
	exitStageFailed = 3
	exitInterrupted = 5
)

// app carries the process-level dependencies of the command tree so tests
// can substitute the executor and output streams.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	executor stage.CommandExecutor
	logger   *zap.Logger

	// flags
	configPath string
	epochs     int
	games      int
	python     string
	pkg        string
	dryRun     bool
	verbose    bool
	statusFile string
}

func newApp() *app {
	return &app{
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		executor: &stage.ExecExecutor{},
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rlloop <work_dir>",
		Short: "Run the self-play / train / export cycle for N epochs",
		Long: `rlloop drives reinforcement-learning epochs by invoking external programs.

Epoch 0 initializes and exports an empty model. Every epoch then runs
self-play from the current exported model, trains the next checkpoint from
the new records, and exports it. A stage is skipped when its output already
exists under <work_dir>, so re-running resumes an interrupted run.`,
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			if err := a.initLogger(cfg.Verbose); err != nil {
				return err
			}
			return a.run(cmd.Context(), cfg)
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return config.Invalid("%v", err)
	})

	cmd.PersistentFlags().IntVar(&a.epochs, "epoch", config.DefaultEpochs, "number of epochs to run")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML file with run settings and program overrides")
	cmd.PersistentFlags().StringVar(&a.python, "python", config.DefaultPython, "python interpreter used for the stage programs")
	cmd.PersistentFlags().StringVar(&a.pkg, "package", config.DefaultPackage, "python package providing the stage modules")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().IntVar(&a.games, "games", config.DefaultGames, "self-play games per epoch")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "print the stages that would run without executing them")
	cmd.Flags().StringVar(&a.statusFile, "status-file", "", "write JSON progress to this file while running")

	cmd.AddCommand(a.statusCmd())
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <work_dir>",
		Short: "Show which artifacts exist and where a run would resume",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd.Flags(), args[0])
			if err != nil {
				return err
			}
			if err := a.initLogger(cfg.Verbose); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			planner := loop.NewPlanner(cfg)
			stages := planner.All(cfg.Epochs)

			var next *stage.Stage
			if idx, ok := loop.ResumePoint(stages, artifact.Exists); ok {
				next = &stages[idx]
			}
			a.logger.Debug("inspecting work dir", zap.String("work_dir", planner.Layout().WorkDir()))
			status.RenderInventory(a.stdout, planner.Layout(), cfg.Epochs, next)
			return nil
		},
	}
}

// exactArgs is cobra.ExactArgs reporting an InvalidArgumentsError.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return config.Invalid("%v", err)
		}
		return nil
	}
}

// initLogger builds the process logger once the config is layered, so a
// config file can enable verbose output too.
func (a *app) initLogger(verbose bool) error {
	if a.logger != nil {
		return nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

// loadConfig layers the config file, then explicitly set flags, over the
// defaults.
func (a *app) loadConfig(flags *pflag.FlagSet, workDir string) (config.Config, error) {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(a.configPath, cfg); err != nil {
			return cfg, err
		}
	}
	cfg.WorkDir = workDir

	if flags.Changed("epoch") {
		cfg.Epochs = a.epochs
	}
	if flags.Changed("games") {
		cfg.Games = a.games
	}
	if flags.Changed("python") {
		cfg.Python = a.python
	}
	if flags.Changed("package") {
		cfg.Package = a.pkg
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = a.dryRun
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if flags.Changed("status-file") {
		cfg.StatusFile = a.statusFile
	}
	return cfg, nil
}

func (a *app) run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	tp, err := trace.NewProvider(ctx)
	if err != nil {
		a.logger.Warn("tracing disabled", zap.Error(err))
	}
	observers := []loop.Observer{}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("trace export incomplete", zap.Error(err))
			}
		}()
		observers = append(observers, trace.NewObserver(ctx, tp))
		a.logger.Debug("tracing configured", zap.Bool("exporting", trace.Enabled()))
	}
	if cfg.StatusFile != "" {
		observers = append(observers, status.NewObserver(status.NewWriter(cfg.StatusFile), a.logger))
	}

	runner := stage.NewRunner(a.executor,
		stage.WithOutput(a.stdout),
		stage.WithDryRun(cfg.DryRun),
		stage.WithLogger(a.logger),
	)
	o, err := loop.New(cfg, runner,
		loop.WithOutput(a.stdout),
		loop.WithLogger(a.logger),
		loop.WithObserver(loop.NewMultiObserver(observers...)),
	)
	if err != nil {
		return err
	}
	_, err = o.Run(ctx)
	// A terminal interrupt reaches the child too, which may exit before the
	// signal context is cancelled; the run was still interrupted.
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		err = fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case config.IsInvalidArguments(err):
		return exitInvalidArgs
	case stage.IsStageExecutionFailed(err):
		return exitStageFailed
	default:
		return exitError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp()
	err := a.rootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rlloop: %v\n", err)
		if config.IsInvalidArguments(err) {
			fmt.Fprintln(os.Stderr, "Run 'rlloop --help' for usage.")
		}
	}
	stop()
	os.Exit(exitCode(err))
}
