package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Config holds the settings shared by the CLI and the API server.
type Config struct {
	ApiAddr          string `json:"api_addr"`
	LogLevel         string `json:"log_level"`
	DatabasePath     string `json:"database_path"`
	DefaultMaxLength int    `json:"default_max_length"`
	RandSeed         uint64 `json:"rand_seed"` // 0 draws from the global random source
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		ApiAddr:          ":7278",
		LogLevel:         "info",
		DatabasePath:     "./vomarkov.db?_journal_mode=WAL&_busy_timeout=5000",
		DefaultMaxLength: 100,
		RandSeed:         0,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// Fields missing from the file keep their default values. If the file doesn't
// exist, it is created with the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Defaults are still usable without the file.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.DefaultMaxLength <= 0 {
		config.DefaultMaxLength = DefaultConfig().DefaultMaxLength
	}

	return config, nil
}
