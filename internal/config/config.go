// Package config holds the singleproc CLI configuration, loaded through
// viper from a YAML file, environment variables and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/katalog-app/singleproc/transport/shmfs"
)

// Config is the complete CLI configuration.
type Config struct {
	Node      NodeConfig      `mapstructure:"node" yaml:"node"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`
}

// NodeConfig controls the coordination names and timing.
type NodeConfig struct {
	// Name is the messaging node name registered by this process.
	Name string `mapstructure:"name" yaml:"name"`
	// Channel names the data and event channels.
	Channel string `mapstructure:"channel" yaml:"channel"`
	// ReplaceTimeoutMs bounds how long `listen` asks an existing receiver
	// to step down, in milliseconds.
	ReplaceTimeoutMs int `mapstructure:"replace_timeout_ms" yaml:"replace_timeout_ms"`
}

// ReplaceTimeout returns the replace budget as a duration.
func (n NodeConfig) ReplaceTimeout() time.Duration {
	return time.Duration(n.ReplaceTimeoutMs) * time.Millisecond
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory receiving singleproc.log; empty logs to stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TransportConfig controls the shared messaging domain.
type TransportConfig struct {
	// Dir is the domain root shared by all coordinating processes.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// SetDefaults registers every default with viper. Call before reading the
// config file so the defaults apply even without one.
func SetDefaults() {
	viper.SetDefault("node.name", "singleproc")
	viper.SetDefault("node.channel", "single_process")
	viper.SetDefault("node.replace_timeout_ms", 200)
	viper.SetDefault("logging.level", "INFO")
	viper.SetDefault("logging.dir", "")
	viper.SetDefault("transport.dir", shmfs.DefaultRoot())
}

// Load unmarshals the resolved viper state.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "singleproc")
	}
	return filepath.Join(".", ".singleproc")
}

// Default returns the configuration produced by the registered defaults.
func Default() Config {
	return Config{
		Node: NodeConfig{
			Name:             "singleproc",
			Channel:          "single_process",
			ReplaceTimeoutMs: 200,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Transport: TransportConfig{
			Dir: shmfs.DefaultRoot(),
		},
	}
}

// WriteDefault writes the default configuration as YAML to path, creating
// parent directories. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	raw, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
