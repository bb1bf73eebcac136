// Package config provides configuration loading and management for segoverlap.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many goroutines shard each pass of the build
		NumCores int `yaml:"numCores"`

		// RankOrder is the rank assignment convention: "encounter" or "label"
		RankOrder string `yaml:"rankOrder"`
	} `yaml:"processing"`

	// Input parameters
	Input struct {
		// GroundTruthDir holds the ground-truth label slices
		GroundTruthDir string `yaml:"groundTruthDir"`

		// PredictionDir holds the predicted label slices
		PredictionDir string `yaml:"predictionDir"`

		// Pattern selects the slice files inside both directories
		Pattern string `yaml:"pattern"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// CSVFile receives the non-zero cells of the matrix when set
		CSVFile string `yaml:"csvFile"`

		// SummaryFile receives a YAML evaluation report when set
		SummaryFile string `yaml:"summaryFile"`

		// Top is the number of largest overlaps printed
		Top int `yaml:"top"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.RankOrder = "encounter"

	cfg.Input.Pattern = "*.png"

	cfg.Output.Verbose = true
	cfg.Output.Top = 10

	return cfg
}

// Validate reports values that cannot drive a build
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be positive, got %d", c.Processing.NumCores)
	}
	switch c.Processing.RankOrder {
	case "encounter", "label":
	default:
		return fmt.Errorf("processing.rankOrder must be \"encounter\" or \"label\", got %q", c.Processing.RankOrder)
	}
	if c.Output.Top < 0 {
		return fmt.Errorf("output.top must not be negative, got %d", c.Output.Top)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
