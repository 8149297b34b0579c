package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/health"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Reconcile periodically and expose metrics",
		Long: `Start the reconciler in serve mode. The reconciler will:
- Run a reconciliation pass immediately and then every spec.serve.interval
- Expose Prometheus metrics on /metrics and liveness on /healthz
- Publish one CloudEvent per action when spec.events.sinkUrl is set
- Stop after the current pass on SIGINT or SIGTERM`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	opts.commonOptions.addFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false,
		"Plan and report every action without calling OCM mutation endpoints")
	cmd.Flags().String("interval", "", "Time between reconciliation passes, e.g. 10m. Env: MPR_SERVE_INTERVAL")
	cmd.Flags().Int("metrics-port", 0, "Port of the metrics and health endpoint. Env: MPR_METRICS_PORT")
	return cmd
}

// runServe runs the periodic reconcile loop until a signal arrives, then
// shuts down the metrics server and flushes traces
func runServe(cmd *cobra.Command, opts *runOptions) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rt, err := bootstrap(ctx, cmd.Flags(), opts.commonOptions)
	if err != nil {
		return err
	}
	defer rt.shutdown(ctx)
	log := rt.log

	interval, err := rt.config.ServeInterval()
	if err != nil {
		return err
	}

	metricsServer := health.NewMetricsServer(log, strconv.Itoa(rt.config.MetricsPort()), health.MetricsConfig{
		Component: rt.config.Metadata.Name,
		Version:   version,
		Commit:    commit,
	})

	pub, err := rt.publisher(ctx)
	if err != nil {
		errCtx := logger.WithStackTraceField(logger.WithErrorField(ctx, err), logger.CaptureStackTrace(1))
		log.Errorf(errCtx, "Failed to create events publisher")
		return err
	}

	r, err := rt.newReconciler(opts.dryRun, metricsServer, pub)
	if err != nil {
		errCtx := logger.WithStackTraceField(logger.WithErrorField(ctx, err), logger.CaptureStackTrace(1))
		log.Errorf(errCtx, "Failed to create reconciler")
		return fmt.Errorf("failed to create reconciler: %w", err)
	}

	if err := metricsServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// Handle signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		log.Infof(ctx, "Received signal %s, initiating graceful shutdown...", sig)
		cancel()

		// Second signal forces immediate exit
		sig = <-sigCh
		log.Infof(ctx, "Received second signal %s, forcing immediate exit", sig)
		os.Exit(1)
	}()

	log.Infof(ctx, "Reconciler started: interval=%s dryRun=%t", interval, opts.dryRun)
	r.Serve(ctx, interval)
	log.Info(ctx, "Reconcile loop stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		log.Errorf(errCtx, "Error shutting down metrics server")
	}

	log.Info(ctx, "Reconciler shutdown complete")
	return nil
}
