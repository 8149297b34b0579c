// Package config_loader loads and validates the reconciler configuration.
//
// The configuration is a single YAML document of kind ReconcilerConfig.
// Values can be overridden by MPR_* environment variables and CLI flags.
package config_loader

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Load reads the config file, applies environment and flag overrides,
// and validates the result. An empty filePath falls back to MPR_CONFIG.
func Load(filePath string, flags *pflag.FlagSet) (*ReconcilerConfig, error) {
	config, err := loadConfigWithViper(filePath, flags)
	if err != nil {
		return nil, err
	}
	if err := validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Parse decodes and validates a config document without any overrides
func Parse(data []byte) (*ReconcilerConfig, error) {
	var config ReconcilerConfig
	if err := decodeStrict(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validate(config *ReconcilerConfig) error {
	if err := NewSchemaValidator(config).ValidateStructure(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := newValidator(config).Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
