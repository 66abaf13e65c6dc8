// Package config loads the process configuration for the preview history
// tooling.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by every CLI command.
type Config struct {
	// Database is the SQLite database path.
	Database string `yaml:"database"`

	// HistoryLimit is the retention bound applied on persist: the maximum
	// number of manifests kept before trimming.
	HistoryLimit int `yaml:"history_limit"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Database:     "previewtrail.db",
		HistoryLimit: 24,
		LogLevel:     "info",
	}
}

// Load reads and parses a YAML config file. Unknown fields are rejected
// (catches typos like "history_limt"); missing fields fall back to the
// defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Database == "" {
		cfg.Database = Default().Database
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = Default().HistoryLimit
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = Default().LogLevel
	}

	return cfg, nil
}
