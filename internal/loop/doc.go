// Package loop drives the reinforcement-learning epoch cycle.
//
// Each epoch runs, in order, self-play from the current exported model,
// training of the next checkpoint from the new records, and export of that
// checkpoint. Epoch 0 first initializes and exports an empty model. Every
// stage is skipped when its output artifact already exists, so re-running
// over a partially completed working directory resumes at the first missing
// artifact.
//
// # Basic Usage
//
//	cfg := config.Default()
//	cfg.WorkDir = "/data/run1"
//	runner := stage.NewRunner(&stage.ExecExecutor{})
//	o, err := loop.New(cfg, runner)
//	summary, err := o.Run(ctx)
//
// # Testing
//
// stage.Runner accepts any stage.CommandExecutor; a fake executor that
// records invocations (and optionally creates the output artifacts) covers
// the loop without running external programs.
package loop
