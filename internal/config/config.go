package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/termbridge/configs"
)

// Config is the merged view of embedded defaults, the optional user YAML
// file, and command line overrides applied by the caller.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
	Terminal TerminalConfig `yaml:"terminal"`
}

// ServerConfig controls the serve subcommand.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	Token              string   `yaml:"token"`
	DBPath             string   `yaml:"db_path"`
	Profile            string   `yaml:"profile"`
	ProfileDir         string   `yaml:"profile_dir"`
	Restart            bool     `yaml:"restart"`
	SnapshotIntervalMS int      `yaml:"snapshot_interval_ms"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
}

// ClientConfig controls attach and runs, which talk to a running server.
type ClientConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// TerminalConfig seeds the bridged terminal surface.
type TerminalConfig struct {
	Cols     int    `yaml:"cols"`
	Rows     int    `yaml:"rows"`
	Greeting string `yaml:"greeting"`
}

// SnapshotInterval converts the configured milliseconds into a duration.
func (s ServerConfig) SnapshotInterval() time.Duration {
	if s.SnapshotIntervalMS <= 0 {
		return 0
	}
	return time.Duration(s.SnapshotIntervalMS) * time.Millisecond
}

// Defaults parses the embedded baseline configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(configs.DefaultConfig, cfg); err != nil {
		return nil, fmt.Errorf("parse embedded defaults: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns the conventional location of the user config file, or
// an empty string when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "termbridge", "config.yaml")
}

// Load builds the configuration: embedded defaults overlaid with the YAML
// file at path. An empty path falls back to DefaultPath, where a missing
// file is fine; an explicitly given path must exist.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// No user file, defaults stand.
		default:
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills path-like fields that depend on the environment and
// therefore cannot live in the embedded defaults.
func (c *Config) applyDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	if c.Server.DBPath == "" {
		c.Server.DBPath = filepath.Join(home, ".local", "share", "termbridge", "termbridge.db")
	}
	if c.Server.ProfileDir == "" {
		c.Server.ProfileDir = filepath.Join(home, ".config", "termbridge", "profiles")
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.SnapshotIntervalMS < 0 {
		return fmt.Errorf("server.snapshot_interval_ms must not be negative, got %d", c.Server.SnapshotIntervalMS)
	}
	if c.Terminal.Cols <= 0 || c.Terminal.Rows <= 0 {
		return fmt.Errorf("terminal size %dx%d is invalid", c.Terminal.Cols, c.Terminal.Rows)
	}
	if strings.TrimSpace(c.Client.URL) == "" {
		return fmt.Errorf("client.url is required")
	}
	return nil
}
