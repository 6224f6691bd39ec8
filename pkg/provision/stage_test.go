package provision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type scriptedStage struct {
	name        string
	shouldRun   bool
	err         error
	ran         bool
	compensated bool
}

func (s *scriptedStage) Name() string    { return s.name }
func (s *scriptedStage) ShouldRun() bool { return s.shouldRun }

func (s *scriptedStage) Run() error {
	s.ran = true
	return s.err
}

func (s *scriptedStage) Compensate() error {
	s.compensated = true
	return nil
}

func TestChainRunsStagesInOrder(t *testing.T) {
	first := &scriptedStage{name: "first", shouldRun: true}
	second := &scriptedStage{name: "second", shouldRun: true}

	var completed []string
	chain := NewChain()
	chain.AddStage(first)
	chain.AddStage(second)
	chain.SetAfterRun(func(stage Stage) { completed = append(completed, stage.Name()) })

	require.NoError(t, chain.Run())
	require.Equal(t, []string{"first", "second"}, completed)
}

func TestChainFailsFastAndCompensates(t *testing.T) {
	first := &scriptedStage{name: "first", shouldRun: true}
	failing := &scriptedStage{name: "failing", shouldRun: true, err: errors.New("boom")}
	last := &scriptedStage{name: "last", shouldRun: true}

	chain := NewChain()
	chain.AddStage(first)
	chain.AddStage(failing)
	chain.AddStage(last)

	err := chain.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "stage failing")

	require.True(t, failing.compensated)
	// earlier completed stages stay applied, later stages never run
	require.False(t, first.compensated)
	require.False(t, last.ran)
}

func TestChainSkipsSatisfiedStages(t *testing.T) {
	skipped := &scriptedStage{name: "skipped", shouldRun: false}
	active := &scriptedStage{name: "active", shouldRun: true}

	var skippedNames []string
	chain := NewChain()
	chain.AddStage(skipped)
	chain.AddStage(active)
	chain.SetAfterSkip(func(stage Stage) { skippedNames = append(skippedNames, stage.Name()) })

	require.NoError(t, chain.Run())
	require.False(t, skipped.ran)
	require.True(t, active.ran)
	require.Equal(t, []string{"skipped"}, skippedNames)
}

func TestParseMajorVersion(t *testing.T) {
	testCases := []struct {
		output  string
		version int
		wantErr bool
	}{
		{output: "  Pi-hole version is v5.18.2 (Latest: v5.18.2)", version: 5},
		{output: "Core version is v6.0.4", version: 6},
		{output: "v4.3", version: 4},
		{output: "no version here", wantErr: true},
		{output: "", wantErr: true},
	}

	for _, tC := range testCases {
		version, err := parseMajorVersion(tC.output)
		if tC.wantErr {
			require.Error(t, err, tC.output)
			continue
		}
		require.NoError(t, err, tC.output)
		require.Equal(t, tC.version, version, tC.output)
	}
}
