package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nodelink/internal/ir"
)

func TestGolden_ReplaceSource(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "replace_source"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestGolden_BypassPassThrough(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "bypass_pass_through"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestTraceSnapshot_OmitsUnsetFields(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "s",
		Trace: []StepTrace{
			{
				Step: 1, Action: ActionRemove, TxID: "tx-1", Outcome: OutcomeOK,
				Mutations: []ir.Mutation{
					{ID: "ignored", Seq: 2, Op: ir.OpDeleteNode, Node: "Top/M",
						Out: ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort}, In: ir.Endpoint{Node: ir.NoKey, Port: ir.NoPort}},
					{Seq: 3, Op: ir.OpCreateLink, CreatedInPort: true,
						Out: ir.Endpoint{Node: "Top/A", Port: 0}, In: ir.Endpoint{Node: "Top/G", Port: 0}},
				},
			},
			{Step: 2, Action: ActionUndo, Outcome: OutcomeIrreversible, Mutations: []ir.Mutation{}},
		},
	}

	data, err := ir.MarshalCanonical(snap.toCanonicalMap())
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"s","trace":[`+
			`{"action":"remove","mutations":[`+
			`{"node":"Top/M","op":"delete_node","seq":2},`+
			`{"created_in_port":true,"in":{"node":"Top/G","port":0},"op":"create_link","out":{"node":"Top/A","port":0},"seq":3}`+
			`],"outcome":"ok","step":1,"tx":"tx-1"},`+
			`{"action":"undo","mutations":[],"outcome":"IRREVERSIBLE","step":2}]}`,
		string(data))
}

func TestTraceSnapshot_MarshalIsIndented(t *testing.T) {
	snap := TraceSnapshot{ScenarioName: "empty", Trace: []StepTrace{}}
	data, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"scenario\": \"empty\",\n  \"trace\": []\n}\n", string(data))
}
