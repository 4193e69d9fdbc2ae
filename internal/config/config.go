// Package config loads casket's runtime configuration from .casket.yaml,
// CASKET_* environment variables, and CLI flags, in ascending precedence.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a casket invocation.
type Config struct {
	// OutputRoot is the default output root for collect when --out is not
	// given.
	OutputRoot string `mapstructure:"output_root"`

	// LedgerPath is the JSONL evidence ledger. Empty disables the ledger.
	LedgerPath string `mapstructure:"ledger_path"`

	// CatalogPath is the SQLite run catalog. Empty disables the catalog.
	CatalogPath string `mapstructure:"catalog_path"`

	Verbose bool `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("output_root", "evidence/bundles")
	viper.SetDefault("ledger_path", "evidence/ledger.jsonl")
	viper.SetDefault("catalog_path", "")
	viper.SetDefault("verbose", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
