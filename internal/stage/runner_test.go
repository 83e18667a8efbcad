package stage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor records invocations and returns a fixed status.
type fakeExecutor struct {
	calls  [][]string
	status ExitStatus
	err    error
}

func (f *fakeExecutor) Execute(_ context.Context, args []string) (ExitStatus, error) {
	f.calls = append(f.calls, args)
	return f.status, f.err
}

func existsSet(paths ...string) func(string) bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[p] = true
	}
	return func(p string) bool { return set[p] }
}

func trainStage() Stage {
	return Stage{
		Name:         NameTrain,
		Epoch:        0,
		Args:         []string{"python", "-m", "othello_train.rl_train_v1", "/w/cp_0/cp", "/w/cp_1/cp", "/w/records/records_0.bin"},
		SkipIfExists: "/w/cp_1",
	}
}

func TestRunner_RunsAndEchoes(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{}
	r := NewRunner(exec, WithOutput(&out), WithExistsFunc(existsSet()))

	res, err := r.Run(context.Background(), trainStage())
	require.NoError(t, err)
	assert.True(t, res.Executed())
	require.Len(t, exec.calls, 1)
	assert.Equal(t, trainStage().Args, exec.calls[0])
	assert.Equal(t, trainStage().CommandLine()+"\n", out.String())
}

func TestRunner_SkipsExistingArtifact(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{}
	r := NewRunner(exec, WithOutput(&out), WithExistsFunc(existsSet("/w/cp_1")))

	res, err := r.Run(context.Background(), trainStage())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, exec.calls)
	assert.Equal(t, "#skip: "+trainStage().CommandLine()+"\n", out.String())
}

func TestRunner_NoSkipPathAlwaysRuns(t *testing.T) {
	exec := &fakeExecutor{}
	r := NewRunner(exec, WithOutput(&bytes.Buffer{}), WithExistsFunc(func(string) bool { return true }))

	s := trainStage()
	s.SkipIfExists = ""
	_, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, exec.calls, 1)
}

func TestRunner_NonZeroExitFails(t *testing.T) {
	exec := &fakeExecutor{status: 3}
	r := NewRunner(exec, WithOutput(&bytes.Buffer{}), WithExistsFunc(existsSet()))

	_, err := r.Run(context.Background(), trainStage())
	require.Error(t, err)

	var sf *StageExecutionFailedError
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, ExitStatus(3), sf.Status)
	assert.Equal(t, NameTrain, sf.Stage.Name)
	assert.Contains(t, err.Error(), "exit status 3")
	assert.Contains(t, err.Error(), "rl_train_v1")
}

func TestRunner_LaunchErrorFails(t *testing.T) {
	launchErr := errors.New("exec: \"python\": executable file not found in $PATH")
	exec := &fakeExecutor{status: -1, err: launchErr}
	r := NewRunner(exec, WithOutput(&bytes.Buffer{}), WithExistsFunc(existsSet()))

	_, err := r.Run(context.Background(), trainStage())
	assert.True(t, IsStageExecutionFailed(err))
	assert.ErrorIs(t, err, launchErr)
}

func TestRunner_DryRun(t *testing.T) {
	var out bytes.Buffer
	exec := &fakeExecutor{}
	r := NewRunner(exec, WithOutput(&out), WithDryRun(true), WithExistsFunc(existsSet()))

	res, err := r.Run(context.Background(), trainStage())
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.False(t, res.Executed())
	assert.Empty(t, exec.calls)
	assert.True(t, strings.HasPrefix(out.String(), "#dry-run: "))
}

func TestRunner_CancelledContextDoesNotLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExecutor{}
	r := NewRunner(exec, WithOutput(&bytes.Buffer{}), WithExistsFunc(existsSet()))

	_, err := r.Run(ctx, trainStage())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.calls)
}

func TestRunner_WithRealExecutor(t *testing.T) {
	var out, stdout bytes.Buffer
	e := &ExecExecutor{Stdout: &stdout, Stderr: &bytes.Buffer{}, Factory: helperFactory("exit", "RLLOOP_EXIT_CODE=7")}
	r := NewRunner(e, WithOutput(&out), WithExistsFunc(existsSet()))

	_, err := r.Run(context.Background(), trainStage())
	var sf *StageExecutionFailedError
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, ExitStatus(7), sf.Status)
}

func TestName_String(t *testing.T) {
	assert.Equal(t, "self-play", NameSelfPlay.String())
	assert.Equal(t, "unknown", Name(99).String())
}
