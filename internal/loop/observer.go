package loop

import (
	"rlloop/internal/stage"
)

// LoopInfo describes a run at its start.
type LoopInfo struct {
	RunID   string
	WorkDir string
	Epochs  int
	Games   int
	DryRun  bool
}

// Observer receives progress callbacks from the orchestrator. Calls are made
// sequentially from the goroutine running the loop.
type Observer interface {
	OnLoopStart(info LoopInfo)
	OnEpochStart(epoch int)
	OnStageStart(s stage.Stage)
	OnStageEnd(res stage.Result, err error)
	OnEpochEnd(epoch int)
	OnLoopEnd(summary *Summary, err error)
}

// NoopObserver implements Observer with empty methods. Embed it to override
// only the callbacks you need.
type NoopObserver struct{}

var _ Observer = NoopObserver{}

func (NoopObserver) OnLoopStart(LoopInfo)           {}
func (NoopObserver) OnEpochStart(int)               {}
func (NoopObserver) OnStageStart(stage.Stage)       {}
func (NoopObserver) OnStageEnd(stage.Result, error) {}
func (NoopObserver) OnEpochEnd(int)                 {}
func (NoopObserver) OnLoopEnd(*Summary, error)      {}

// MultiObserver fans out progress updates to multiple observers.
// It handles nil observers gracefully by skipping them.
type MultiObserver struct {
	observers []Observer
}

var _ Observer = (*MultiObserver)(nil)

// NewMultiObserver creates a MultiObserver that forwards calls to all provided observers.
// Nil observers are filtered out and not included in the list.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

// safeCall calls fn with panic recovery. One observer failing shouldn't block others.
func safeCall(fn func()) {
	defer func() {
		_ = recover()
	}()
	fn()
}

// OnLoopStart forwards the call to all observers.
func (m *MultiObserver) OnLoopStart(info LoopInfo) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnLoopStart(info) })
	}
}

// OnEpochStart forwards the call to all observers.
func (m *MultiObserver) OnEpochStart(epoch int) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnEpochStart(epoch) })
	}
}

// OnStageStart forwards the call to all observers.
func (m *MultiObserver) OnStageStart(s stage.Stage) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnStageStart(s) })
	}
}

// OnStageEnd forwards the call to all observers.
func (m *MultiObserver) OnStageEnd(res stage.Result, err error) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnStageEnd(res, err) })
	}
}

// OnEpochEnd forwards the call to all observers.
func (m *MultiObserver) OnEpochEnd(epoch int) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnEpochEnd(epoch) })
	}
}

// OnLoopEnd forwards the call to all observers.
func (m *MultiObserver) OnLoopEnd(summary *Summary, err error) {
	for _, obs := range m.observers {
		safeCall(func() { obs.OnLoopEnd(summary, err) })
	}
}
