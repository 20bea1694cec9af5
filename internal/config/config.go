// Package config loads ivmsync's runtime configuration, trimmed from the
// teacher's pkg/config to the sections this core actually needs: logging,
// scratch-store capacity hints, and source hydration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the application configuration.
type Config struct {
	Log       LogConfig       `json:"log"`
	Scratch   ScratchConfig   `json:"scratch"`
	Hydration HydrationConfig `json:"hydration"`
}

// LogConfig holds log settings. LoadConfig checks Level against the names
// internal/ivmlog understands, but nothing in this module passes it to
// ivmlog.SetLevel, and Format is not read anywhere.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json or text
}

// ScratchConfig holds a capacity hint for scratch stores. LoadConfig checks
// that it is >= 0; scratch.New takes no capacity argument, so the value
// does not size any scratch.Store.
type ScratchConfig struct {
	InitialCapacity int `json:"initial_capacity"`
}

// HydrationConfig holds settings for bringing a Source up to date before it
// goes live. cmd/seed reads SnapshotPath to open the badger snapshot store;
// BatchSize (checked to be > 0) and Timeout are not read by
// internal/snapshot or internal/loader.
type HydrationConfig struct {
	BatchSize     int           `json:"batch_size"`
	Timeout       time.Duration `json:"timeout"`
	SnapshotPath  string        `json:"snapshot_path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scratch: ScratchConfig{
			InitialCapacity: 64,
		},
		Hydration: HydrationConfig{
			BatchSize:    500,
			Timeout:      30 * time.Second,
			SnapshotPath: "./snapshot.badger",
		},
	}
}

// LoadConfig loads configuration from a JSON file, falling back to
// DefaultConfig when configPath is empty.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault tries IVMSYNC_CONFIG and a few common locations
// before falling back to DefaultConfig.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("IVMSYNC_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}

	possiblePaths := []string{
		"config.json",
		"./config/config.json",
		"/etc/ivmsync/config.json",
	}
	for _, path := range possiblePaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if cfg, err := LoadConfig(absPath); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

func validateConfig(cfg *Config) error {
	if cfg.Scratch.InitialCapacity < 0 {
		return fmt.Errorf("scratch.initial_capacity must be >= 0")
	}
	if cfg.Hydration.BatchSize < 1 {
		return fmt.Errorf("hydration.batch_size must be > 0")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	return nil
}
