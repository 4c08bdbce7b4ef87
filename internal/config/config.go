// Package config loads huskyd configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads from YAML as a string like "1s".
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// GeminiConfig configures the chat brain.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API. May also come from
	// the GEMINI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Config holds all huskyd settings.
type Config struct {
	// Listen is the gateway's bind address.
	Listen string `yaml:"listen"`
	// ServerURL is the MCP endpoint the chat and task commands talk to.
	ServerURL string `yaml:"server_url"`
	// DeviceURL is the HuskyLens2 HTTP bridge address.
	DeviceURL string `yaml:"device_url"`
	// DBPath is the SQLite database location.
	DBPath string `yaml:"db"`
	// Demo runs the gateway against a simulated device.
	Demo bool `yaml:"demo"`

	PollInterval  Duration `yaml:"poll_interval"`
	DeviceTimeout Duration `yaml:"device_timeout"`

	Gemini GeminiConfig `yaml:"gemini"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Listen:        "127.0.0.1:3000",
		ServerURL:     "http://127.0.0.1:3000/mcp",
		DeviceURL:     "http://192.168.4.1",
		DBPath:        filepath.Join(home, ".huskyd", "huskyd.db"),
		PollInterval:  Duration(time.Second),
		DeviceTimeout: Duration(5 * time.Second),
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return applyEnv(DefaultConfig()), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromHome loads configuration from ~/.huskyd/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return applyEnv(DefaultConfig()), nil
	}
	return Load(filepath.Join(home, ".huskyd", "config.yaml"))
}

// Save writes configuration to a YAML file, creating parent directories
// if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.PollInterval.Std() <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.DeviceTimeout.Std() <= 0 {
		return fmt.Errorf("device_timeout must be positive")
	}
	if !c.Demo && c.DeviceURL == "" {
		return fmt.Errorf("device_url is required unless demo mode is on")
	}
	return nil
}

// applyEnv overlays environment variables on top of file values.
func applyEnv(cfg *Config) *Config {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Gemini.APIKey = key
	}
	return cfg
}
