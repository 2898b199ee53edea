package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes yaml next to a copy-free reference to the flat
// scene and returns the scenario path.
func writeScenario(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	scene, err := filepath.Abs("testdata/scenes/flat.cue")
	require.NoError(t, err)
	path := filepath.Join(dir, "scenario.yaml")
	content := "scene: " + scene + "\n" + yaml
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/replace_source.yaml")
	require.NoError(t, err)

	assert.Equal(t, "replace_source", s.Name)
	assert.Equal(t, filepath.Join("testdata", "scenes", "flat.cue"), s.Scene)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, ActionConnect, s.Steps[0].Action())
	assert.Equal(t, ActionDisconnect, s.Steps[2].Action())
	assert.Equal(t, ActionUndo, s.Steps[3].Action())
	assert.Equal(t, 3, s.Steps[3].Undo.Step)
	require.Len(t, s.Assertions, 6)
	assert.Nil(t, s.Options.AutoDisconnect)
}

func TestLoadScenario_Options(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/port_occupied.yaml")
	require.NoError(t, err)

	require.NotNil(t, s.Options.AutoDisconnect)
	assert.False(t, *s.Options.AutoDisconnect)
	assert.Equal(t, "strict", s.TxPrefix)
	assert.Equal(t, "PORT_OCCUPIED", s.Steps[1].ExpectError)
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "misspelled key"
steps:
  - connect: { from: "Top/A:0", to: "Top/B:0" }
assertion:
  - type: fan_in
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_SceneNotFound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: lost
description: "scene missing"
scene: missing.cue
steps:
  - remove: { node: "Top/A" }
assertions:
  - type: fan_in
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scene file not found")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
description: "d"
steps: [{remove: {node: "Top/A"}}]
assertions: [{type: fan_in}]
`,
			want: "name is required",
		},
		{
			name: "missing steps",
			yaml: `
name: n
description: "d"
assertions: [{type: fan_in}]
`,
			want: "steps list is required",
		},
		{
			name: "empty step",
			yaml: `
name: n
description: "d"
steps: [{expect_error: PORT_OCCUPIED}]
assertions: [{type: fan_in}]
`,
			want: "one of connect, disconnect, insert, remove, undo is required",
		},
		{
			name: "two operations",
			yaml: `
name: n
description: "d"
steps: [{remove: {node: "Top/A"}, undo: {step: 1}}]
assertions: [{type: fan_in}]
`,
			want: "only one operation per step",
		},
		{
			name: "bad endpoint",
			yaml: `
name: n
description: "d"
steps: [{connect: {from: "Top/A:x", to: "Top/B:0"}}]
assertions: [{type: fan_in}]
`,
			want: "connect.from",
		},
		{
			name: "undo of a later step",
			yaml: `
name: n
description: "d"
steps: [{undo: {step: 1}}]
assertions: [{type: fan_in}]
`,
			want: "undo.step must name an earlier step",
		},
		{
			name: "unknown assertion",
			yaml: `
name: n
description: "d"
steps: [{remove: {node: "Top/A"}}]
assertions: [{type: trace_contains}]
`,
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "port_count without counts",
			yaml: `
name: n
description: "d"
steps: [{remove: {node: "Top/A"}}]
assertions: [{type: port_count, node: "Top/B"}]
`,
			want: "in or out is required",
		},
		{
			name: "mutation_count without count",
			yaml: `
name: n
description: "d"
steps: [{remove: {node: "Top/A"}}]
assertions: [{type: mutation_count}]
`,
			want: "count must be non-negative",
		},
		{
			name: "mutation_count with unknown op",
			yaml: `
name: n
description: "d"
steps: [{remove: {node: "Top/A"}}]
assertions: [{type: mutation_count, op: rename, count: 0}]
`,
			want: `unknown op "rename"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
