// Package config handles loading and validation of optional user configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

var errUnknownDriver = errors.New("unknown driver in config file")

// knownDrivers guards against typos in the config file; an empty value
// means "infer from the environment".
var knownDrivers = map[string]bool{"": true, "github": true, "gitlab": true, "bitbucket": true}

// Config represents the complete configuration for ci-bridge. Every
// field is optional; flags and environment variables take precedence.
type Config struct {
	Driver string       `yaml:"driver"`
	Repo   string       `yaml:"repo"`
	Runner RunnerConfig `yaml:"runner"`
	Bucket string       `yaml:"bucket"`
}

// RunnerConfig contains runner lifecycle defaults.
type RunnerConfig struct {
	Labels      string `yaml:"labels"`
	IdleTimeout string `yaml:"idle-timeout"`
	WorkDir     string `yaml:"workdir"`
}

// Load reads and parses the configuration file from the user's home
// directory. A missing file is not an error: the zero Config is
// returned.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	return LoadFrom(filepath.Join(homeDir, ".config", "ci-bridge", "config.yml"))
}

// LoadFrom reads the configuration from an explicit path.
func LoadFrom(configPath string) (*Config, error) {
	// #nosec G304 - Reading config from user's home directory is intentional
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks the configured values.
func (c *Config) Validate() error {
	if !knownDrivers[c.Driver] {
		return fmt.Errorf("%w: %s", errUnknownDriver, c.Driver)
	}
	return nil
}
