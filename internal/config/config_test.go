package config

import (
	"testing"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoadDefaults(t *testing.T) {
	resetViper()
	t.Cleanup(resetViper)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputRoot != "evidence/bundles" {
		t.Errorf("OutputRoot = %q", cfg.OutputRoot)
	}
	if cfg.LedgerPath != "evidence/ledger.jsonl" {
		t.Errorf("LedgerPath = %q", cfg.LedgerPath)
	}
	if cfg.CatalogPath != "" {
		t.Errorf("CatalogPath = %q, want empty (catalog disabled by default)", cfg.CatalogPath)
	}
	if cfg.Verbose {
		t.Error("Verbose default should be false")
	}
}

func TestLoadOverrides(t *testing.T) {
	resetViper()
	t.Cleanup(resetViper)

	viper.Set("output_root", "/mnt/evidence")
	viper.Set("catalog_path", ".casket/runs.db")
	viper.Set("verbose", true)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputRoot != "/mnt/evidence" {
		t.Errorf("OutputRoot = %q", cfg.OutputRoot)
	}
	if cfg.CatalogPath != ".casket/runs.db" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}
	if !cfg.Verbose {
		t.Error("Verbose override not applied")
	}
}
