package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nodelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.True(t, cfg.Link.AutoDisconnect)
	assert.False(t, cfg.Link.PruneDanglingLegs)
	assert.Empty(t, cfg.Journal.Path)
	assert.False(t, cfg.Trace.Enabled)
	assert.Equal(t, "stdout", cfg.Trace.Exporter)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
link:
  auto_disconnect: false
  prune_dangling_legs: true
journal:
  path: rig.db
trace:
  enabled: true
  exporter: none
`)

	cfg, err := LoadConfig(viper.New(), path)
	require.NoError(t, err)
	assert.False(t, cfg.Link.AutoDisconnect)
	assert.True(t, cfg.Link.PruneDanglingLegs)
	assert.Equal(t, "rig.db", cfg.Journal.Path)
	assert.True(t, cfg.Trace.Enabled)
	assert.Equal(t, "none", cfg.Trace.Exporter)
	assert.Equal(t, "nodelink", cfg.Trace.ServiceName)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("NODELINK_JOURNAL_PATH", "env.db")
	t.Setenv("NODELINK_LINK_AUTO_DISCONNECT", "false")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Journal.Path)
	assert.False(t, cfg.Link.AutoDisconnect)
}

func TestRootOptions_ConfigFlags(t *testing.T) {
	t.Setenv("NODELINK_JOURNAL_PATH", "env.db")

	opts := &RootOptions{Format: "text"}
	cmd := NewConnectCommand(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--db", "flag.db", "--no-auto-disconnect", "--prune-legs"}))

	cfg, err := opts.Config(cmd)
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.Journal.Path)
	assert.False(t, cfg.Link.AutoDisconnect)
	assert.True(t, cfg.Link.PruneDanglingLegs)
}

func TestRootOptions_ConfigUnsetFlagsKeepFile(t *testing.T) {
	path := writeConfig(t, "journal:\n  path: file.db\n")

	opts := &RootOptions{Format: "text", ConfigFile: path}
	cmd := NewGraphCommand(opts)
	require.NoError(t, cmd.ParseFlags(nil))

	cfg, err := opts.Config(cmd)
	require.NoError(t, err)
	assert.Equal(t, "file.db", cfg.Journal.Path)
	assert.True(t, cfg.Link.AutoDisconnect)
}

func TestRootOptions_ConfigBadFile(t *testing.T) {
	path := writeConfig(t, "link: [unclosed\n")

	opts := &RootOptions{Format: "text", ConfigFile: path}
	_, err := opts.Config(NewGraphCommand(opts))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
