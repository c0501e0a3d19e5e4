// Package config provides configuration loading and management for envmap.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"envmap/pkg/interpolation"
	"envmap/pkg/projection"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is how many channels are resampled concurrently
		Workers int `yaml:"workers"`

		// Method is the interpolation method, "linear" or "nearest"
		Method string `yaml:"method"`
	} `yaml:"processing"`

	// Conversion defaults
	Conversion struct {
		// From is the projection assumed for input images
		From string `yaml:"from"`

		// To is the projection produced when none is given
		To string `yaml:"to"`

		// Background fills pixels outside the target's field of view
		Background []float64 `yaml:"background"`

		// Verify converts the result back and reports round-trip error
		Verify bool `yaml:"verify"`
	} `yaml:"conversion"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults writes masks and previews next to the output
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary results are written
		IntermediaryDir string `yaml:"intermediaryDir"`

		// PreviewSize bounds the longer side of preview images
		PreviewSize int `yaml:"previewSize"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// HTTP server parameters
	Server struct {
		Bind         string        `yaml:"bind"`
		Port         int           `yaml:"port"`
		Timeout      time.Duration `yaml:"timeout"`
		MaxBodyBytes int64         `yaml:"maxBodyBytes"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.Workers = runtime.NumCPU() // One goroutine per core
	cfg.Processing.Method = interpolation.Linear.String()

	// Set default conversion parameters
	cfg.Conversion.From = projection.LatLong.String()
	cfg.Conversion.To = projection.Angular.String()
	cfg.Conversion.Background = []float64{0, 0, 0}
	cfg.Conversion.Verify = false

	// Set default output parameters
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"
	cfg.Output.PreviewSize = 512
	cfg.Output.Verbose = true

	// Set default server parameters
	cfg.Server.Bind = "localhost"
	cfg.Server.Port = 8080
	cfg.Server.Timeout = 30 * time.Second
	cfg.Server.MaxBodyBytes = 64 << 20

	return cfg
}

// Validate checks that the configured formats and method are known
func (c *Config) Validate() error {
	if _, err := projection.ParseFormat(c.Conversion.From); err != nil {
		return fmt.Errorf("conversion.from: %w", err)
	}
	if _, err := projection.ParseFormat(c.Conversion.To); err != nil {
		return fmt.Errorf("conversion.to: %w", err)
	}
	if _, err := interpolation.ParseMethod(c.Processing.Method); err != nil {
		return fmt.Errorf("processing.method: %w", err)
	}
	if c.Processing.Workers < 0 {
		return fmt.Errorf("processing.workers must not be negative, got %d", c.Processing.Workers)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
