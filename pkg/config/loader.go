package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadClientConfig loads and validates an ExternalTaskClient manifest from a YAML file.
func LoadClientConfig(filename string) (*ClientConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := ParseClientConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// ParseClientConfig validates manifest bytes against the schema, decodes them,
// applies defaults, and runs the semantic checks.
func ParseClientConfig(data []byte) (*ClientConfig, error) {
	// Step 1: JSON Schema validation (structure, types, required fields, kind values)
	if err := ValidateClientConfig(data); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
