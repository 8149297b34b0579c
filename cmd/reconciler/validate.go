package main

import (
	"errors"
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/dev"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
		output     string
		strict     bool
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the declared clusters",
		Long: `Validate a reconciler configuration file and the desired state it points at,
without contacting OCM.

This command checks:
  - YAML syntax and schema structure
  - OCM environment definitions
  - Cluster selector syntax and which clusters it selects
  - Declared clusters: classification, OCM environment references and pools

Examples:
  # Basic validation
  machinepool-reconciler validate --config ./reconciler.yaml

  # JSON output for CI pipelines
  machinepool-reconciler validate --config ./reconciler.yaml --output json

  # Strict mode (treat warnings as errors)
  machinepool-reconciler validate --config ./reconciler.yaml --strict

  # With environment variables from .env file
  machinepool-reconciler validate --config ./reconciler.yaml --env-file .env.local`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				envVars, err := dev.LoadEnvFile(envFile)
				if err != nil {
					return fmt.Errorf("failed to load env file: %w", err)
				}
				if err := dev.ApplyEnvVars(envVars); err != nil {
					return fmt.Errorf("failed to apply env vars: %w", err)
				}
			}

			format, err := dev.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			writer := dev.NewOutputWriter(cmd.OutOrStdout(), format, verbose)

			result, err := dev.ValidateConfig(configPath, dev.ValidateOptions{
				Strict: strict,
				Flags:  cmd.Flags(),
			})
			if err != nil {
				_ = writer.WriteError(err)
				return fmt.Errorf("validation error: %w", err)
			}

			if err := writer.WriteValidationResult(result); err != nil {
				return fmt.Errorf("failed to write results: %w", err)
			}

			if !result.Valid {
				return errValidationFailed
			}
			return nil
		},
	}

	addConfigFlags(cmd.Flags(), &configPath)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Show warnings and detailed validation results")
	cmd.Flags().StringVarP(&output, "output", "o", "text",
		"Output format: text or json")
	cmd.Flags().BoolVar(&strict, "strict", false,
		"Treat warnings as errors")
	cmd.Flags().StringVar(&envFile, "env-file", "",
		"Path to .env file for required environment variables")

	return cmd
}
