package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig_DefaultBackend(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend default = %q, want %q", cfg.Storage.Backend, "memory")
	}
}

func TestConfig_LogLevelEnvOverride(t *testing.T) {
	t.Setenv("VALORA_LOG_LEVEL", "debug")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q after env override, want %q", cfg.Logging.Level, "debug")
	}
}

func TestConfig_DataPathEnvOverride(t *testing.T) {
	t.Setenv("VALORA_DATA_PATH", "/tmp/data")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	want := filepath.Join("/tmp/data", "valora")
	if cfg.Storage.Badger.Path != want {
		t.Errorf("Storage.Badger.Path = %q, want %q", cfg.Storage.Badger.Path, want)
	}
}

func TestConfig_BaseCurrencyEnvOverride(t *testing.T) {
	t.Setenv("VALORA_BASE_CURRENCY", "usd")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)
	validateBaseCurrency(cfg)

	if cfg.BaseCurrency != "USD" {
		t.Errorf("BaseCurrency = %q, want %q", cfg.BaseCurrency, "USD")
	}
}

func TestConfig_BaseCurrencyInvalidFallsBack(t *testing.T) {
	cfg := &Config{BaseCurrency: "EURO"}
	validateBaseCurrency(cfg)
	if cfg.BaseCurrency != "EUR" {
		t.Errorf("BaseCurrency = %q for invalid input, want %q", cfg.BaseCurrency, "EUR")
	}
}

func TestConfig_RebalanceEnvOverrides(t *testing.T) {
	t.Setenv("VALORA_REBALANCE_MAX_TRANSACTIONS", "5")
	t.Setenv("VALORA_REBALANCE_MIN_ORDER_VALUE", "25.5")
	t.Setenv("VALORA_REBALANCE_ROUNDING", "integer")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Rebalance.MaxTransactions != 5 {
		t.Errorf("Rebalance.MaxTransactions = %d, want 5", cfg.Rebalance.MaxTransactions)
	}
	if cfg.Rebalance.MinOrderValue != 25.5 {
		t.Errorf("Rebalance.MinOrderValue = %v, want 25.5", cfg.Rebalance.MinOrderValue)
	}
	if cfg.Rebalance.Rounding != "integer" {
		t.Errorf("Rebalance.Rounding = %q, want %q", cfg.Rebalance.Rounding, "integer")
	}
}

func TestConfig_RebalanceInvalidValuesClamped(t *testing.T) {
	cfg := &Config{
		Rebalance: RebalanceConfig{
			MaxTransactions: -1,
			MinOrderValue:   -50,
			Rounding:        "round-half-up",
		},
	}
	validateRebalance(cfg)

	if cfg.Rebalance.MaxTransactions != 10 {
		t.Errorf("MaxTransactions = %d after clamp, want 10", cfg.Rebalance.MaxTransactions)
	}
	if cfg.Rebalance.MinOrderValue != 0 {
		t.Errorf("MinOrderValue = %v after clamp, want 0", cfg.Rebalance.MinOrderValue)
	}
	if cfg.Rebalance.Rounding != "fractional" {
		t.Errorf("Rounding = %q after clamp, want %q", cfg.Rebalance.Rounding, "fractional")
	}
}

func TestLoadConfig_MissingFileSkipped(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/valora.toml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q, want default %q", cfg.Storage.Backend, "memory")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valora.toml")
	content := `
environment = "production"
base_currency = "USD"

[storage]
backend = "badger"

[storage.badger]
path = "/var/lib/valora"

[rebalance]
max_transactions = 20
rounding = "integer"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.BaseCurrency != "USD" {
		t.Errorf("BaseCurrency = %q, want %q", cfg.BaseCurrency, "USD")
	}
	if cfg.Storage.Backend != "badger" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "badger")
	}
	if cfg.Storage.Badger.Path != "/var/lib/valora" {
		t.Errorf("Storage.Badger.Path = %q, want %q", cfg.Storage.Badger.Path, "/var/lib/valora")
	}
	if cfg.Rebalance.MaxTransactions != 20 {
		t.Errorf("Rebalance.MaxTransactions = %d, want 20", cfg.Rebalance.MaxTransactions)
	}
	if cfg.Rebalance.Rounding != "integer" {
		t.Errorf("Rebalance.Rounding = %q, want %q", cfg.Rebalance.Rounding, "integer")
	}
}
