package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for a pulsar invocation.
// Values are populated from .pulsar.yaml, PULSAR_* env vars, and CLI flags.
// workspace.toml [tool] values win over these for the tool path, since pins
// belong to the workspace, not the machine.
type Config struct {
	PexToolPath string `mapstructure:"pex_tool_path"`
	Workspace   string `mapstructure:"workspace"`
	EventsLog   string `mapstructure:"events_log"`
	NoCache     bool   `mapstructure:"no_cache"`
	Verbose     bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("pex_tool_path", "")
	viper.SetDefault("workspace", ".")
	viper.SetDefault("events_log", "")
	viper.SetDefault("no_cache", false)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
