package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/nodelink/internal/tracing"
)

// DefaultConfigFile is read from the working directory when --config is
// not given.
const DefaultConfigFile = "nodelink.yaml"

// Config is the CLI configuration. Every key can be set in the config
// file, as NODELINK_<SECTION>_<KEY> in the environment, or by the bound
// flag.
//
//	link:
//	  auto_disconnect: true
//	  prune_dangling_legs: false
//	journal:
//	  path: ./scene.journal.db
//	trace:
//	  enabled: false
//	  exporter: stdout
type Config struct {
	Link    LinkConfig     `mapstructure:"link"`
	Journal JournalConfig  `mapstructure:"journal"`
	Trace   tracing.Config `mapstructure:"trace"`
}

// LinkConfig holds Linker options.
type LinkConfig struct {
	AutoDisconnect    bool `mapstructure:"auto_disconnect"`
	PruneDanglingLegs bool `mapstructure:"prune_dangling_legs"`
}

// JournalConfig locates the SQLite journal. An empty Path disables
// persistence.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Link:  LinkConfig{AutoDisconnect: true},
		Trace: tracing.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("link.auto_disconnect", defaults.Link.AutoDisconnect)
	v.SetDefault("link.prune_dangling_legs", defaults.Link.PruneDanglingLegs)
	v.SetDefault("journal.path", defaults.Journal.Path)
	v.SetDefault("trace.enabled", defaults.Trace.Enabled)
	v.SetDefault("trace.exporter", defaults.Trace.Exporter)
	v.SetDefault("trace.file_path", defaults.Trace.FilePath)
	v.SetDefault("trace.service_name", defaults.Trace.ServiceName)
}

// LoadConfig reads path, or nodelink.yaml in the working directory when
// path is empty, into v and decodes the result. A missing default file is
// not an error; a missing explicit file is.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("NODELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case path != "":
		v.SetConfigFile(path)
	default:
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			v.SetConfigFile(DefaultConfigFile)
		}
	}

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) || path != "" {
				return Config{}, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}
