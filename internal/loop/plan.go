package loop

import (
	"strconv"

	"rlloop/internal/artifact"
	"rlloop/internal/config"
	"rlloop/internal/stage"
)

// Planner builds the stage list for an epoch. Its output depends only on
// the layout, the resolved programs and the game count.
type Planner struct {
	layout   artifact.Layout
	programs config.Programs
	games    int
}

// NewPlanner creates a planner for cfg.
func NewPlanner(cfg config.Config) Planner {
	return Planner{
		layout:   artifact.NewLayout(cfg.WorkDir),
		programs: cfg.Resolved(),
		games:    cfg.Games,
	}
}

// Layout returns the artifact layout the planner resolves paths against.
func (p Planner) Layout() artifact.Layout {
	return p.layout
}

// Epoch returns the stages for epoch e in execution order.
func (p Planner) Epoch(e int) []stage.Stage {
	l := p.layout
	var stages []stage.Stage
	if e == 0 {
		stages = append(stages,
			stage.Stage{
				Name:         stage.NameInit,
				Epoch:        0,
				Args:         argv(p.programs.Init, l.CheckpointPrefix(0)),
				SkipIfExists: l.Checkpoint(0),
			},
			p.export(0),
		)
	}
	stages = append(stages,
		stage.Stage{
			Name:         stage.NameSelfPlay,
			Epoch:        e,
			Args:         argv(p.programs.SelfPlay, l.ExportedModel(e), l.Records(e), "--games", strconv.Itoa(p.games)),
			SkipIfExists: l.Records(e),
		},
		stage.Stage{
			Name:         stage.NameTrain,
			Epoch:        e,
			Args:         argv(p.programs.Train, l.CheckpointPrefix(e), l.CheckpointPrefix(e+1), l.Records(e)),
			SkipIfExists: l.Checkpoint(e + 1),
		},
		p.export(e+1),
	)
	return stages
}

// All returns the stages for epochs 0..epochs-1 in execution order.
func (p Planner) All(epochs int) []stage.Stage {
	var stages []stage.Stage
	for e := 0; e < epochs; e++ {
		stages = append(stages, p.Epoch(e)...)
	}
	return stages
}

// export converts checkpoint n into exported model n. Its Epoch is the
// epoch whose checkpoint it reads.
func (p Planner) export(n int) stage.Stage {
	return stage.Stage{
		Name:         stage.NameExport,
		Epoch:        n,
		Args:         argv(p.programs.Export, p.layout.CheckpointPrefix(n), p.layout.ExportedModel(n)),
		SkipIfExists: p.layout.ExportedModel(n),
	}
}

func argv(prefix []string, args ...string) []string {
	out := make([]string, 0, len(prefix)+len(args))
	out = append(out, prefix...)
	return append(out, args...)
}

// ResumePoint returns the index of the first stage whose output artifact
// is missing according to exists, i.e. where a run over stages would start
// executing. ok is false when every stage would be skipped.
func ResumePoint(stages []stage.Stage, exists func(string) bool) (idx int, ok bool) {
	for i, s := range stages {
		if s.SkipIfExists == "" || !exists(s.SkipIfExists) {
			return i, true
		}
	}
	return len(stages), false
}
