package harness

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/nodelink/internal/ir"
)

// TraceSnapshot captures the trace of a scenario run.
// It is serialized as canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []StepTrace
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// Mutation IDs are left out: they are content hashes of the other fields.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	steps := make([]any, len(s.Trace))
	for i, st := range s.Trace {
		muts := make([]any, len(st.Mutations))
		for k, m := range st.Mutations {
			mm := map[string]any{
				"seq": m.Seq,
				"op":  m.Op,
			}
			if m.Op == ir.OpDeleteNode {
				mm["node"] = m.Node
			} else {
				mm["out"] = m.Out
				mm["in"] = m.In
			}
			if m.CreatedOutPort {
				mm["created_out_port"] = true
			}
			if m.CreatedInPort {
				mm["created_in_port"] = true
			}
			muts[k] = mm
		}
		step := map[string]any{
			"step":      st.Step,
			"action":    st.Action,
			"outcome":   st.Outcome,
			"mutations": muts,
		}
		if st.TxID != "" {
			step["tx"] = st.TxID
		}
		steps[i] = step
	}

	return map[string]any{
		"scenario": s.ScenarioName,
		"trace":    steps,
	}
}

// Marshal returns the snapshot as indented canonical JSON with a trailing
// newline. Indentation keeps golden diffs readable; key order is canonical.
func (s *TraceSnapshot) Marshal() ([]byte, error) {
	canonical, err := ir.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
