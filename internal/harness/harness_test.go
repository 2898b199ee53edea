package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodelink/internal/ir"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_AllScenariosPass(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRun_TraceRecordsTransactions(t *testing.T) {
	result, err := Run(loadScenario(t, "replace_source"))
	require.NoError(t, err)

	require.Len(t, result.Trace, 4)
	for i, st := range result.Trace {
		assert.Equal(t, i+1, st.Step)
		assert.Equal(t, OutcomeOK, st.Outcome)
		assert.Equal(t, "tx-"+string(rune('1'+i)), st.TxID)
	}

	replaced := result.Trace[1].Mutations
	require.Len(t, replaced, 2)
	assert.Equal(t, ir.OpRemoveLink, replaced[0].Op)
	assert.Equal(t, ir.Endpoint{Node: "Top/A", Port: 0}, replaced[0].Out)
	assert.Equal(t, ir.OpCreateLink, replaced[1].Op)

	assert.Equal(t, []ir.LinkSpec{
		{From: ir.Endpoint{Node: "Top/C", Port: 0}, To: ir.Endpoint{Node: "Top/B", Port: 0}},
	}, result.Links)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "cross_groups")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_TxPrefix(t *testing.T) {
	result, err := Run(loadScenario(t, "port_occupied"))
	require.NoError(t, err)

	assert.Equal(t, "strict-1", result.Trace[0].TxID)
	assert.Equal(t, "PORT_OCCUPIED", result.Trace[1].Outcome)
	assert.Empty(t, result.Trace[1].Mutations)
	assert.Equal(t, OutcomeNothingRemoved, result.Trace[2].Outcome)
}

func TestRun_RefusedUndoHasNoTransaction(t *testing.T) {
	result, err := Run(loadScenario(t, "bypass_pass_through"))
	require.NoError(t, err)

	undo := result.Trace[3]
	assert.Equal(t, ActionUndo, undo.Action)
	assert.Equal(t, OutcomeIrreversible, undo.Outcome)
	assert.Empty(t, undo.TxID)
	assert.Empty(t, undo.Mutations)
}

func TestRun_UnexpectedError(t *testing.T) {
	s := loadScenario(t, "replace_source")
	s.Steps = []Step{{Remove: &RemoveStep{Node: "Top/Nope"}}}
	s.Assertions = []Assertion{{Type: AssertFanIn}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "INVALID_ENDPOINT", result.Trace[0].Outcome)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	s := loadScenario(t, "replace_source")
	s.Steps = []Step{{
		Connect:     &ConnectStep{From: "Top/A:0", To: "Top/B:0"},
		ExpectError: "PORT_OCCUPIED",
	}}
	s.Assertions = []Assertion{{Type: AssertFanIn}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected PORT_OCCUPIED, got success")
}

func TestRun_WrongErrorCode(t *testing.T) {
	s := loadScenario(t, "replace_source")
	s.Steps = []Step{{
		Remove:      &RemoveStep{Node: "Top/Nope"},
		ExpectError: "PORT_OCCUPIED",
	}}
	s.Assertions = []Assertion{{Type: AssertFanIn}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected PORT_OCCUPIED, got INVALID_ENDPOINT")
}

func TestRun_SceneBuildFailure(t *testing.T) {
	s := &Scenario{Name: "broken", Scene: "testdata/scenes/missing.cue"}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build scene")
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	s := loadScenario(t, "replace_source")
	three := 3
	s.Assertions = []Assertion{
		{Type: AssertLinkExists, From: "Top/A:0", To: "Top/B:0"},
		{Type: AssertMutationCount, Count: &three},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "fed by Top/C[0]")
	assert.Contains(t, result.Errors[1], "Expected: 3 mutations")
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, outcomeOf(nil))
	assert.Equal(t, OutcomeNothingRemoved, outcomeOf(errNothingRemoved))
	assert.Equal(t, OutcomeError, outcomeOf(assert.AnError))
}
