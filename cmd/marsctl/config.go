package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the marsctl configuration file.
type Config struct {
	// APIURL is the base URL of the mars API.
	APIURL string `toml:"api_url"`

	// SessionFile holds the cookies of the signed-in session between runs.
	SessionFile string `toml:"session_file"`

	// Timeout bounds each API call, refreshes included.
	Timeout duration `toml:"timeout"`
}

// duration lets TOML hold "15s" style values.
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// configDir is where marsctl keeps its files, ~/.config/marsctl on Linux.
func configDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "marsctl")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		APIURL:      "http://localhost:8080",
		SessionFile: filepath.Join(configDir(), "session.toml"),
		Timeout:     duration{15 * time.Second},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
