// Package config handles configuration loading, validation, and management for imectx.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete probe configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Probe configuration for composition polling.
	Probe ProbeConfig `toml:"probe" json:"probe" yaml:"probe"`

	// Candidate window placement.
	Candidate CandidateConfig `toml:"candidate" json:"candidate" yaml:"candidate"`

	// mu protects concurrent access to the config.
	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout" or "stderr".
	Output string `toml:"output" json:"output" yaml:"output"`

	// LogText allows composition text to appear in logs.
	LogText bool `toml:"log_text" json:"log_text" yaml:"log_text"`
}

// ProbeConfig holds composition polling configuration.
type ProbeConfig struct {
	// PollIntervalMs is how often the window's input context is queried.
	PollIntervalMs int `toml:"poll_interval_ms" json:"poll_interval_ms" yaml:"poll_interval_ms"`

	// Output is the report format: "text" or "json".
	Output string `toml:"output" json:"output" yaml:"output"`

	// Candidates enables candidate list queries.
	Candidates bool `toml:"candidates" json:"candidates" yaml:"candidates"`

	// Window selects the window: "foreground" or a hex handle like "0x1a2b".
	Window string `toml:"window" json:"window" yaml:"window"`

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string `toml:"metrics_addr" json:"metrics_addr" yaml:"metrics_addr"`
}

// CandidateConfig holds candidate window placement configuration.
type CandidateConfig struct {
	// OffsetX and OffsetY are logical coordinates of the exclusion point.
	OffsetX float64 `toml:"offset_x" json:"offset_x" yaml:"offset_x"`
	OffsetY float64 `toml:"offset_y" json:"offset_y" yaml:"offset_y"`

	// ScaleFactor converts logical to physical pixels.
	ScaleFactor float64 `toml:"scale_factor" json:"scale_factor" yaml:"scale_factor"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Probe: ProbeConfig{
			PollIntervalMs: 100,
			Output:         "text",
			Candidates:     true,
			Window:         "foreground",
		},
		Candidate: CandidateConfig{
			ScaleFactor: 1.0,
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// loadConfigFromFile reads and parses a config file based on its extension.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if err := autoDetectAndParse(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	return cfg, nil
}

// autoDetectAndParse attempts to parse the config in multiple formats.
func autoDetectAndParse(data []byte, cfg *Config) error {
	// Try TOML first (most common)
	if _, err := toml.Decode(string(data), cfg); err == nil {
		return nil
	}

	if err := json.Unmarshal(data, cfg); err == nil {
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err == nil {
		return nil
	}

	return fmt.Errorf("unable to parse config file (tried TOML, JSON, YAML)")
}

// Save writes the configuration as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with IMECTX_ and use underscores.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Logging overrides
	if v := os.Getenv("IMECTX_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("IMECTX_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}

	// Probe overrides
	if v := os.Getenv("IMECTX_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Probe.PollIntervalMs = ms
		}
	}
	if v := os.Getenv("IMECTX_WINDOW"); v != "" {
		c.Probe.Window = v
	}
	if v := os.Getenv("IMECTX_METRICS_ADDR"); v != "" {
		c.Probe.MetricsAddr = v
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		Version:   c.Version,
		Logging:   c.Logging,
		Probe:     c.Probe,
		Candidate: c.Candidate,
	}
}

// PollInterval returns the probe poll interval.
func (c *Config) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Probe.PollIntervalMs) * time.Millisecond
}

// WindowHandle parses Probe.Window. ok is false for "foreground".
func (c *Config) WindowHandle() (hwnd uintptr, ok bool, err error) {
	c.mu.RLock()
	w := c.Probe.Window
	c.mu.RUnlock()

	return ParseWindow(w)
}

// ParseWindow parses a window selector: "foreground" (or empty) selects the
// foreground window, anything else must be a handle in hex or decimal.
func ParseWindow(s string) (hwnd uintptr, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "foreground") {
		return 0, false, nil
	}

	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid window handle %q: %w", s, err)
	}
	if v == 0 {
		return 0, false, fmt.Errorf("invalid window handle %q: zero", s)
	}
	return uintptr(v), true, nil
}
