package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "machinepool_reconciler"

// MetricsServer provides HTTP metrics endpoint for Prometheus.
type MetricsServer struct {
	server       *http.Server
	log          logger.Logger
	port         string
	registry     *prometheus.Registry
	upGauge      prometheus.Gauge
	buildInfo    *prometheus.GaugeVec
	lastRunGauge prometheus.Gauge
	lastSuccess  prometheus.Gauge
	lastFailure  prometheus.Gauge
	actions      *prometheus.CounterVec
	planErrors   *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	ready        atomic.Bool
}

// MetricsConfig holds configuration for metrics registration.
type MetricsConfig struct {
	Component string
	Version   string
	Commit    string
}

// NewMetricsServer creates a new metrics server with the reconciler metrics.
// Each server uses its own Prometheus registry to avoid conflicts.
func NewMetricsServer(log logger.Logger, port string, cfg MetricsConfig) *MetricsServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "build_info",
			Help:      "Build information for the reconciler",
		},
		[]string{"component", "version", "commit"},
	)

	upGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "up",
			Help:      "Whether the reconciler is up and running",
			ConstLabels: prometheus.Labels{
				"component": cfg.Component,
				"version":   cfg.Version,
			},
		},
	)

	// Dead man's switch: timestamp of the last finished run regardless of outcome
	lastRunGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp",
			Help:      "Unix timestamp of the last finished reconciliation run (dead man's switch)",
		},
	)

	lastSuccess := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_success_timestamp",
			Help:      "Unix timestamp of the last reconciliation run that succeeded",
		},
	)

	lastFailure := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_failure_timestamp",
			Help:      "Unix timestamp of the last reconciliation run that failed",
		},
	)

	actions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "actions_total",
			Help:      "Planned pool actions by operation and outcome",
		},
		[]string{"operation", "status"},
	)

	planErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "plan_errors_total",
			Help:      "Invalid updates found while planning, by kind",
		},
		[]string{"kind"},
	)

	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"result"},
	)

	registry.MustRegister(buildInfo, upGauge, lastRunGauge, lastSuccess, lastFailure, actions, planErrors, runDuration)

	// Set build_info to 1 (this is an info metric)
	buildInfo.WithLabelValues(cfg.Component, cfg.Version, cfg.Commit).Set(1)
	upGauge.Set(1)

	s := &MetricsServer{
		log:          log,
		port:         port,
		registry:     registry,
		upGauge:      upGauge,
		buildInfo:    buildInfo,
		lastRunGauge: lastRunGauge,
		lastSuccess:  lastSuccess,
		lastFailure:  lastFailure,
		actions:      actions,
		planErrors:   planErrors,
		runDuration:  runDuration,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start starts the metrics server in a goroutine.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.log.Infof(ctx, "Starting metrics server on port %s", s.port)
	s.ready.Store(true)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCtx := logger.WithErrorField(ctx, err)
			s.log.Errorf(errCtx, "Metrics server error")
		}
	}()

	return nil
}

func (s *MetricsServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// Handler returns the HTTP handler serving /metrics and /healthz
func (s *MetricsServer) Handler() http.Handler {
	return s.server.Handler
}

// RecordAction counts one action outcome. It satisfies executor.Recorder.
func (s *MetricsServer) RecordAction(operation, status string) {
	s.actions.WithLabelValues(operation, status).Inc()
}

// RecordPlanError counts one invalid update of the given kind
func (s *MetricsServer) RecordPlanError(kind string) {
	s.planErrors.WithLabelValues(kind).Inc()
}

// RecordRun updates the run timestamps and the duration histogram.
// Call this once per run, regardless of outcome.
func (s *MetricsServer) RecordRun(duration time.Duration, success bool) {
	result := "success"
	if success {
		s.lastSuccess.SetToCurrentTime()
	} else {
		result = "failure"
		s.lastFailure.SetToCurrentTime()
	}
	s.lastRunGauge.SetToCurrentTime()
	s.runDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// Shutdown gracefully shuts down the metrics server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "Shutting down metrics server...")
	s.ready.Store(false)
	s.upGauge.Set(0)
	return s.server.Shutdown(ctx)
}
