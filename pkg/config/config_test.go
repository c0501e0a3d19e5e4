package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the defaults are valid
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}
	if cfg.Conversion.From != "latlong" || cfg.Conversion.To != "angular" {
		t.Errorf("Unexpected default formats %s -> %s", cfg.Conversion.From, cfg.Conversion.To)
	}
	if len(cfg.Conversion.Background) != 3 {
		t.Errorf("Expected a black RGB background, got %v", cfg.Conversion.Background)
	}
}

// TestLoadMissingConfig verifies a missing file yields defaults
func TestLoadMissingConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
}

// TestSaveAndLoadConfig verifies a saved configuration loads back
func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "envmap.yaml")

	cfg := DefaultConfig()
	cfg.Processing.Workers = 3
	cfg.Processing.Method = "nearest"
	cfg.Conversion.To = "skyangular"
	cfg.Conversion.Background = []float64{0.1, 0.2, 0.3}
	cfg.Server.Timeout = 5 * time.Second

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Processing.Workers != 3 || loaded.Processing.Method != "nearest" {
		t.Errorf("Processing section not restored: %+v", loaded.Processing)
	}
	if loaded.Conversion.To != "skyangular" || loaded.Conversion.Background[2] != 0.3 {
		t.Errorf("Conversion section not restored: %+v", loaded.Conversion)
	}
	if loaded.Server.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %v", loaded.Server.Timeout)
	}
}

// TestLoadInvalidConfig verifies unknown formats are rejected
func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("conversion:\n  to: cubemap\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for unknown target format")
	}

	if err := os.WriteFile(path, []byte("processing: [not, a, map]\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}
