package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "replay", scenePath("flat.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay_DatabaseNotFound(t *testing.T) {
	out, err := execute(t, "replay", scenePath("flat.cue"), "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "database not found")
}

func TestReplay_EmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "flat.db")
	// graph creates the database without journaling anything.
	_, err := execute(t, "graph", scenePath("flat.cue"), "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "replay", scenePath("flat.cue"), "--db", db, "--diff", "--format", "json")
	require.NoError(t, err)
	result := decode[ReplayResult](t, out).Data
	assert.True(t, result.Deterministic)
	assert.Zero(t, result.Mutations)
	assert.Empty(t, result.Diff)
	assert.Equal(t, "flat", result.Scene)
}

func TestReplay_Diverged(t *testing.T) {
	db := filepath.Join(t.TempDir(), "groups.db")
	_, err := execute(t, "connect", scenePath("groups.cue"), "Top/G1/A:0", "Top/G2/B:0", "--db", db)
	require.NoError(t, err)

	// The journal names nodes the flat scene does not have.
	out, err := execute(t, "replay", scenePath("flat.cue"), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeReplay)

	_, err = execute(t, "connect", scenePath("flat.cue"), "Top/A:0", "Top/B:0", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestReplay_TextDiff(t *testing.T) {
	db := filepath.Join(t.TempDir(), "flat.db")
	_, err := execute(t, "connect", scenePath("flat.cue"), "Top/A:0", "Top/B:0", "--db", db)
	require.NoError(t, err)

	out, err := execute(t, "replay", scenePath("flat.cue"), "--db", db, "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: flat, 1 mutation(s)")
	assert.Regexp(t, `(?m)^\+ \s+"node": "Top/A",$`, out)
	assert.Regexp(t, `(?m)^- \s+"links": \[\],$`, out)
	assert.NotContains(t, out, "never committed")
}

func TestHistory(t *testing.T) {
	t.Run("requires database", func(t *testing.T) {
		_, err := execute(t, "history")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("empty", func(t *testing.T) {
		db := filepath.Join(t.TempDir(), "flat.db")
		_, err := execute(t, "graph", scenePath("flat.cue"), "--db", db)
		require.NoError(t, err)

		out, err := execute(t, "history", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "No transactions recorded.")
	})

	t.Run("unknown transaction", func(t *testing.T) {
		db := filepath.Join(t.TempDir(), "flat.db")
		_, err := execute(t, "graph", scenePath("flat.cue"), "--db", db)
		require.NoError(t, err)

		_, err = execute(t, "history", "--db", db, "--tx", "missing")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("config file names the database", func(t *testing.T) {
		dir := t.TempDir()
		db := filepath.Join(dir, "flat.db")
		_, err := execute(t, "connect", scenePath("flat.cue"), "Top/A:0", "Top/B:0", "--db", db)
		require.NoError(t, err)

		cfg := writeConfig(t, "journal:\n  path: "+db+"\n")
		out, err := execute(t, "history", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "connect Top/A[0] -> Top/B[0]")
		assert.Contains(t, out, "1 transaction(s), 0 open")
	})
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "graph", scenePath("groups.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "flowchart LR")
	assert.Contains(t, out, "subgraph")
	assert.NotContains(t, out, "-->")

	out, err = execute(t, "graph", scenePath("groups.cue"), "--format", "json")
	require.NoError(t, err)
	resp := decode[GraphResult](t, out)
	assert.Equal(t, "groups", resp.Data.Scene)
	assert.Contains(t, resp.Data.Mermaid, "flowchart LR")
}
