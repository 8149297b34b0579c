package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/config_loader"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Build-time variables set via ldflags
var (
	version   = "0.1.0"
	commit    = "none"
	buildDate = "unknown"
	tag       = "none"
)

const componentName = "machinepool-reconciler"

// Logging flags shared by every command that builds a logger
var (
	logLevel  string
	logFormat string
	logOutput string
)

func main() {
	// Add flags to root command (so they work on all subcommands)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   componentName,
		Short: "Reconciles OCM machine pools and node pools against declared state",
		Long: `machinepool-reconciler reads the machine pools declared for each cluster,
compares them with the pools OCM reports and creates, updates or deletes
pools until both agree. Invalid updates are reported and never applied.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Machine Pool Reconciler\n")
			_, _ = fmt.Fprintf(out, "  Version:    %s\n", version)
			_, _ = fmt.Fprintf(out, "  Commit:     %s\n", commit)
			_, _ = fmt.Fprintf(out, "  Built:      %s\n", buildDate)
			_, _ = fmt.Fprintf(out, "  Tag:        %s\n", tag)
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPlanCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// addLoggingFlags registers --log-level, --log-format and --log-output
func addLoggingFlags(flags *pflag.FlagSet) {
	flags.StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error). Env: LOG_LEVEL")
	flags.StringVar(&logFormat, "log-format", "",
		"Log format (text, json). Env: LOG_FORMAT")
	flags.StringVar(&logOutput, "log-output", "",
		"Log output (stdout, stderr). Env: LOG_OUTPUT")
}

// addConfigFlags registers --config and the flags overriding config file
// values. Flag names must match the config loader's flag mappings.
func addConfigFlags(flags *pflag.FlagSet, configPath *string) {
	flags.StringVarP(configPath, "config", "c", "",
		fmt.Sprintf("Path to reconciler configuration file (can also use %s env var)", config_loader.EnvConfigPath))
	flags.String("integration", "", "Integration name clusters opt out of. Env: MPR_INTEGRATION")
	flags.String("desired-state", "", "Cluster file or directory of cluster files. Env: MPR_DESIRED_STATE_PATH")
	flags.String("cluster-selector", "", "CEL expression selecting the clusters to reconcile. Env: MPR_CLUSTER_SELECTOR")
	flags.String("events-sink-url", "", "CloudEvents sink receiving one event per action. Env: MPR_EVENTS_SINK_URL")
	flags.Int("fetch-concurrency", 0, "Clusters fetched from OCM in parallel. Env: MPR_FETCH_CONCURRENCY")
	flags.Bool("debug-config", false, "Log the merged configuration at startup. Env: MPR_DEBUG_CONFIG")
}

// buildLoggerConfig builds a logger.Config by loading defaults from the environment,
// applying any command-line flag overrides (flags take precedence), and setting the
// provided component name and the global version.
func buildLoggerConfig(component string) logger.Config {
	cfg := logger.ConfigFromEnv()

	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	if logOutput != "" {
		cfg.Output = logOutput
	}

	cfg.Component = component
	cfg.Version = version

	return cfg
}
