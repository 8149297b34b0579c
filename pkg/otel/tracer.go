// Package otel sets up OpenTelemetry tracing for reconciliation runs and
// carries trace context on outgoing OCM calls and audit events.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracing configuration constants
const (
	// EnvTraceSampleRatio is the environment variable for trace sampling ratio
	EnvTraceSampleRatio = "TRACE_SAMPLE_RATIO"

	// DefaultTraceSampleRatio samples every run unless TRACE_SAMPLE_RATIO says otherwise
	DefaultTraceSampleRatio = 1.0
)

// GetTraceSampleRatio returns the root span sampling ratio from
// TRACE_SAMPLE_RATIO. Unset, unparsable or out of range values fall back to
// DefaultTraceSampleRatio with a warning.
func GetTraceSampleRatio(log logger.Logger, ctx context.Context) float64 {
	raw, ok := os.LookupEnv(EnvTraceSampleRatio)
	if !ok || raw == "" {
		log.Debugf(ctx, "%s not set, sampling every reconciliation run", EnvTraceSampleRatio)
		return DefaultTraceSampleRatio
	}

	ratio, err := strconv.ParseFloat(raw, 64)
	switch {
	case err != nil:
		log.Warnf(ctx, "Ignoring %s=%q: not a number", EnvTraceSampleRatio, raw)
		return DefaultTraceSampleRatio
	case ratio < 0 || ratio > 1:
		log.Warnf(ctx, "Ignoring %s=%q: must be between 0 and 1", EnvTraceSampleRatio, raw)
		return DefaultTraceSampleRatio
	}

	log.Infof(ctx, "Sampling %.0f%% of reconciliation runs", ratio*100)
	return ratio
}

// InitTracer installs a global TracerProvider so every reconciliation run gets
// a trace_id/span_id for log correlation and for the traceparent header sent
// to OCM. Root spans are sampled with TraceIDRatioBased(sampleRatio); child
// spans follow their parent.
func InitTracer(serviceName, serviceVersion string, sampleRatio float64) (*sdktrace.TracerProvider, error) {
	// Create resource with service attributes.
	// Note: We don't merge with resource.Default() to avoid schema URL conflicts
	// between the SDK's bundled semconv version and our imported version.
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}

// StartRunSpan starts the root span of a reconciliation run and attaches the
// trace ids to the logging context. Caller must call span.End().
func StartRunSpan(ctx context.Context, tracerName, runID string, dryRun bool) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Reconcile",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.Bool("dry_run", dryRun),
		))
	return logger.WithOTelTraceContext(ctx), span
}

// Shutdown flushes and stops the provider, logging instead of failing
func Shutdown(ctx context.Context, log logger.Logger, tp *sdktrace.TracerProvider) {
	if tp == nil {
		return
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warnf(logger.WithErrorField(ctx, err), "Failed to shut down tracer provider")
	}
}
