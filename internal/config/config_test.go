package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.PollInterval.Std() != time.Second {
		t.Errorf("Unexpected default poll interval: %v", cfg.PollInterval.Std())
	}
	if cfg.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("Unexpected default model: %s", cfg.Gemini.Model)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "127.0.0.1:3000" {
		t.Errorf("Expected default listen address, got %s", cfg.Listen)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listen: 0.0.0.0:3100
device_url: http://10.0.0.9
poll_interval: 250ms
device_timeout: 2s
gemini:
  model: gemini-2.0-flash
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Listen != "0.0.0.0:3100" {
		t.Errorf("Listen not overridden: %s", cfg.Listen)
	}
	if cfg.PollInterval.Std() != 250*time.Millisecond {
		t.Errorf("PollInterval not parsed: %v", cfg.PollInterval.Std())
	}
	if cfg.DeviceTimeout.Std() != 2*time.Second {
		t.Errorf("DeviceTimeout not parsed: %v", cfg.DeviceTimeout.Std())
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Gemini model not overridden: %s", cfg.Gemini.Model)
	}
	// Untouched fields keep defaults
	if cfg.DBPath == "" {
		t.Error("DBPath default lost")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: soonish\n"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Expected parse error for bad duration")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DeviceURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing device_url")
	}
	cfg.Demo = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Demo mode should not require device_url: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:4000"
	cfg.PollInterval = Duration(3 * time.Second)

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Listen != "127.0.0.1:4000" {
		t.Errorf("Listen not round-tripped: %s", loaded.Listen)
	}
	if loaded.PollInterval.Std() != 3*time.Second {
		t.Errorf("PollInterval not round-tripped: %v", loaded.PollInterval.Std())
	}
}
