// Package common provides shared utilities for Valora
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Valora
type Config struct {
	Environment  string          `toml:"environment"`
	BaseCurrency string          `toml:"base_currency"` // Default base currency for new portfolios
	Storage      StorageConfig   `toml:"storage"`
	Rebalance    RebalanceConfig `toml:"rebalance"`
	Logging      LoggingConfig   `toml:"logging"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Backend selects the storage implementation: "memory" or "badger".
	Backend string     `toml:"backend"`
	Badger  AreaConfig `toml:"badger"`
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// RebalanceConfig holds default knobs for rebalance previews.
type RebalanceConfig struct {
	MaxTransactions int     `toml:"max_transactions"`
	MinOrderValue   float64 `toml:"min_order_value"`
	Rounding        string  `toml:"rounding"` // "fractional" or "integer"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		BaseCurrency: "EUR",
		Storage: StorageConfig{
			Backend: "memory",
			Badger:  AreaConfig{Path: "data/valora"},
		},
		Rebalance: RebalanceConfig{
			MaxTransactions: 10,
			MinOrderValue:   0,
			Rounding:        "fractional",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Outputs:    []string{"console"},
			FilePath:   "./logs/valora.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	validateBaseCurrency(config)
	validateRebalance(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VALORA_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("VALORA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("VALORA_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	if path := os.Getenv("VALORA_DATA_PATH"); path != "" {
		config.Storage.Badger.Path = filepath.Join(path, "valora")
	}

	if bc := os.Getenv("VALORA_BASE_CURRENCY"); bc != "" {
		config.BaseCurrency = strings.ToUpper(bc)
	}

	if v := os.Getenv("VALORA_REBALANCE_MAX_TRANSACTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Rebalance.MaxTransactions = n
		}
	}

	if v := os.Getenv("VALORA_REBALANCE_MIN_ORDER_VALUE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Rebalance.MinOrderValue = f
		}
	}

	if v := os.Getenv("VALORA_REBALANCE_ROUNDING"); v != "" {
		config.Rebalance.Rounding = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateBaseCurrency upper-cases the base currency and falls back to EUR
// for anything that is not a 3-letter code.
func validateBaseCurrency(config *Config) {
	bc := strings.ToUpper(strings.TrimSpace(config.BaseCurrency))
	if len(bc) != 3 {
		bc = "EUR"
	}
	config.BaseCurrency = bc
}

// validateRebalance clamps rebalance defaults to sane values.
func validateRebalance(config *Config) {
	if config.Rebalance.MaxTransactions <= 0 {
		config.Rebalance.MaxTransactions = 10
	}
	if config.Rebalance.MinOrderValue < 0 {
		config.Rebalance.MinOrderValue = 0
	}
	switch config.Rebalance.Rounding {
	case "fractional", "integer":
	default:
		config.Rebalance.Rounding = "fractional"
	}
}
