package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/nodelink/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the nodelink CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nodelink",
		Short: "Connect nodes across group boundaries",
		Long: `nodelink edits the links of a hierarchical node graph.

Scenes are CUE files describing nested groups of nodes. A connection
between nodes in different groups is realized as a chain of structural
links through the groups' boundary proxies; nodelink plans, applies and
removes those chains, and journals every change to SQLite.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./"+DefaultConfigFile+")")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewConnectCommand(opts))
	cmd.AddCommand(NewDisconnectCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

func (o *RootOptions) viper() *viper.Viper {
	if o.v == nil {
		o.v = viper.New()
	}
	return o.v
}

// flagKeys maps command flags onto the config keys they override.
var flagKeys = map[string]string{
	"db":                 "journal.path",
	"no-auto-disconnect": "link.auto_disconnect",
	"prune-legs":         "link.prune_dangling_legs",
	"trace":              "trace.enabled",
	"trace-file":         "trace.file_path",
}

// Config loads the configuration for the running command. Flags of cmd
// that were set on the command line take precedence over the file and the
// environment.
func (o *RootOptions) Config(cmd *cobra.Command) (Config, error) {
	v := o.viper()
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if name == "no-auto-disconnect" {
			v.Set(key, f.Value.String() != "true")
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return Config{}, WrapExitError(ExitCommandError, "failed to bind flag "+name, err)
		}
	}
	cfg, err := LoadConfig(v, o.ConfigFile)
	if err != nil {
		return Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// addLinkFlags registers the flags that override link.* config keys.
func addLinkFlags(fs *pflag.FlagSet) {
	fs.Bool("no-auto-disconnect", false, "refuse to replace an occupied in-port")
	fs.Bool("prune-legs", false, "remove boundary legs left dangling by a disconnect")
}

// addJournalFlags registers --db and the tracing flags.
func addJournalFlags(fs *pflag.FlagSet) {
	fs.String("db", "", "SQLite journal to replay and append to")
	fs.Bool("trace", false, "export OpenTelemetry spans to stderr")
	fs.String("trace-file", "", "write spans to this file instead of stderr")
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes structured logs to w, at debug level when verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	return logging.NewWriter(w, logging.Level(o.Verbose))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
