// Package config loads and watches the jsonpeek configuration file. The
// file is TOML; a missing file yields the defaults, so a config file is
// never required.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the config file looked up in the config directory.
const DefaultFileName = "jsonpeek.toml"

// Config is the full jsonpeek configuration.
type Config struct {
	Adapter AdapterConfig `toml:"adapter"`
	Capture CaptureConfig `toml:"capture"`
	Log     LogConfig     `toml:"log"`
}

// AdapterConfig describes how to reach the debug adapter.
type AdapterConfig struct {
	// Command launches an adapter speaking DAP on stdio. Ignored when
	// Addr is set.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`

	// Addr connects to an adapter listening on a TCP socket.
	Addr string `toml:"addr"`

	// Runtime selects the serialization dialect (nodejs, python, dotnet,
	// go). Empty means detect from the stopped file's extension.
	Runtime string `toml:"runtime"`
}

// CaptureConfig tunes the capture pipeline.
type CaptureConfig struct {
	// Marker overrides the breakpoint condition that opts into capture.
	Marker string `toml:"marker"`

	// Window is how many preceding lines expression inference examines.
	Window int `toml:"window"`

	// OutputDir is where capture artifacts are written.
	OutputDir string `toml:"output_dir"`

	// Compact disables pretty-printing of artifacts.
	Compact bool `toml:"compact"`
}

// LogConfig controls the rotating log file.
type LogConfig struct {
	Path       string `toml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			Window:    3,
			OutputDir: filepath.Join(defaultStateDir(), "captures"),
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads the config file at path, layered over the defaults. A missing
// file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Capture.Window < 0 {
		return fmt.Errorf("capture.window must not be negative")
	}
	if c.Adapter.Command == "" && c.Adapter.Addr == "" {
		// Permitted: the adapter can be specified on the command line.
		return nil
	}
	if c.Adapter.Command != "" && c.Adapter.Addr != "" {
		return fmt.Errorf("adapter.command and adapter.addr are mutually exclusive")
	}
	return nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "jsonpeek", DefaultFileName)
	}
	return filepath.Join(defaultStateDir(), DefaultFileName)
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jsonpeek"
	}
	return filepath.Join(home, ".jsonpeek")
}
