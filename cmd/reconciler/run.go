package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/dev"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/dryrun"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/executor"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/reconciler"
	"github.com/spf13/cobra"
)

// runOptions are the flags of the run and plan commands
type runOptions struct {
	commonOptions
	dryRun  bool
	output  string
	verbose bool
	color   bool
}

func (o *runOptions) addFlags(cmd *cobra.Command, withDryRun bool) {
	o.commonOptions.addFlags(cmd.Flags())
	if withDryRun {
		cmd.Flags().BoolVar(&o.dryRun, "dry-run", false,
			"Plan and report every action without calling OCM mutation endpoints")
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Show payloads and OCM request bodies")
	cmd.Flags().BoolVar(&o.color, "color", false, "Colorize action statuses in text output")
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single reconciliation pass",
		Long: `Run a single reconciliation pass and exit.

The pass loads the declared clusters, fetches their pools from OCM, plans
creates, updates and deletes, and acts on the plan. Invalid updates are
reported after the valid actions ran and make the command exit non-zero.

Examples:
  # Reconcile for real
  machinepool-reconciler run --config ./reconciler.yaml

  # Show what would change
  machinepool-reconciler run --config ./reconciler.yaml --dry-run

  # Reconcile against canned OCM responses
  machinepool-reconciler run --config ./reconciler.yaml --offline-responses ./ocm.yaml -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, true)
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}

func newPlanCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the reconciliation plan without changing anything",
		Long: `Compute the reconciliation plan and print it. No pool is created, updated
or deleted and no action event is published. Equivalent to run --dry-run.

Examples:
  machinepool-reconciler plan --config ./reconciler.yaml
  machinepool-reconciler plan --config ./reconciler.yaml --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.dryRun = true
			return runOnce(cmd, opts, false)
		},
	}
	opts.addFlags(cmd, false)
	return cmd
}

// runOnce executes one reconciliation pass and prints its trace
func runOnce(cmd *cobra.Command, opts *runOptions, withEvents bool) error {
	format, err := dev.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := bootstrap(ctx, cmd.Flags(), opts.commonOptions)
	if err != nil {
		return err
	}
	defer rt.shutdown(ctx)

	var pub executor.Publisher
	if withEvents {
		if pub, err = rt.publisher(ctx); err != nil {
			return err
		}
	}
	r, err := rt.newReconciler(opts.dryRun, nil, pub)
	if err != nil {
		return fmt.Errorf("failed to create reconciler: %w", err)
	}

	result, runErr := r.Run(ctx)

	trace := &dryrun.PlanTrace{
		RunID:     result.RunID,
		DryRun:    result.DryRun,
		Plan:      result.Plan,
		Result:    result.Execution,
		Transport: rt.transport,
		Verbose:   opts.verbose,
		Color:     opts.color,
	}
	if err := writeTrace(cmd.OutOrStdout(), format, trace); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	if runErr != nil && errors.Is(runErr, reconciler.ErrInvalidUpdates) {
		// Already listed in the trace
		return fmt.Errorf("reconciliation finished with %d invalid update(s)", len(result.Plan.Errors))
	}
	return runErr
}

func writeTrace(out io.Writer, format dev.OutputFormat, trace *dryrun.PlanTrace) error {
	if format == dev.OutputFormatJSON {
		raw, err := trace.FormatJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(raw))
		return err
	}
	_, err := fmt.Fprint(out, trace.FormatText())
	return err
}
