package config_loader

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/utils"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for all environment variables that override the config file
const EnvPrefix = "MPR"

// viperKeyMappings defines mappings from config paths to env variable suffixes
// The full env var name is EnvPrefix + "_" + suffix
// Note: Uses "::" as key delimiter to avoid conflicts with dots in YAML keys
var viperKeyMappings = map[string]string{
	"spec::debugConfig":        "DEBUG_CONFIG",
	"spec::integration":        "INTEGRATION",
	"spec::desiredState::path": "DESIRED_STATE_PATH",
	"spec::clusterSelector":    "CLUSTER_SELECTOR",
	"spec::events::sinkUrl":    "EVENTS_SINK_URL",
	"spec::events::source":     "EVENTS_SOURCE",
	"spec::metrics::port":      "METRICS_PORT",
	"spec::serve::interval":    "SERVE_INTERVAL",
	"spec::fetch::concurrency": "FETCH_CONCURRENCY",
}

// cliFlags defines mappings from CLI flag names to config paths
// Note: Uses "::" as key delimiter to avoid conflicts with dots in YAML keys
var cliFlags = map[string]string{
	"debug-config":      "spec::debugConfig",
	"integration":       "spec::integration",
	"desired-state":     "spec::desiredState::path",
	"cluster-selector":  "spec::clusterSelector",
	"events-sink-url":   "spec::events::sinkUrl",
	"metrics-port":      "spec::metrics::port",
	"interval":          "spec::serve::interval",
	"fetch-concurrency": "spec::fetch::concurrency",
}

// loadConfigWithViper loads the reconciler configuration from a YAML file
// with environment variable and CLI flag overrides using Viper.
// Priority: CLI flags > Environment variables > Config file
func loadConfigWithViper(filePath string, flags *pflag.FlagSet) (*ReconcilerConfig, error) {
	// Use "::" as key delimiter to avoid conflicts with dots in YAML keys
	// (e.g., "hyperfleet.io/component" in metadata.labels)
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))

	if filePath == "" {
		filePath = os.Getenv(EnvConfigPath)
	}
	if filePath == "" {
		return nil, apperrors.ConfigNotFound("config file path is required (use --config flag or %s env var)", EnvConfigPath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ConfigNotFound("config file %q not found", filePath)
		}
		return nil, fmt.Errorf("failed to read config file %q: %w", filePath, err)
	}

	// Decode strictly into the struct first so unknown keys are rejected,
	// then into a map for Viper
	var fileConfig ReconcilerConfig
	if err := decodeStrict(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML %q: %w", filePath, err)
	}
	var configMap map[string]interface{}
	if err := yaml.Unmarshal(data, &configMap); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML %q: %w", filePath, err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config map: %w", err)
	}

	// A relative desired state path in the file is relative to the file.
	// Env and flag values below stay relative to the working directory.
	if p := fileConfig.Spec.DesiredState.Path; p != "" {
		resolved, err := utils.ResolvePath(filepath.Dir(filePath), p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", FieldPath, err)
		}
		v.Set("spec::desiredState::path", resolved)
	}

	// Bind environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace "::" (our key delimiter) and "-" with "_" for env var lookups
	v.SetEnvKeyReplacer(strings.NewReplacer("::", "_", "-", "_"))

	for configPath, envSuffix := range viperKeyMappings {
		envVar := EnvPrefix + "_" + envSuffix
		if val := os.Getenv(envVar); val != "" {
			v.Set(configPath, val)
		}
	}

	if flags != nil {
		for flagName, configPath := range cliFlags {
			if flag := flags.Lookup(flagName); flag != nil && flag.Changed {
				v.Set(configPath, flag.Value.String())
			}
		}
	}

	var config ReconcilerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func decodeStrict(data []byte, into interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(into)
}
