package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// Context keys for storing values in context.Context
const (
	LogFieldsKey contextKey = "log_fields"
)

// Log field name constants - use these directly in WithFields maps
const (
	ComponentKey = "component"
	VersionKey   = "version"
	HostnameKey  = "hostname"

	ErrorKey      = "error"
	StackTraceKey = "stack_trace"

	// Correlation fields
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
	RunIDKey   = "run_id"

	// Reconciliation fields
	IntegrationKey = "integration"
	ClusterKey     = "cluster"
	ClusterTypeKey = "cluster_type"
	PoolIDKey      = "pool_id"
	OperationKey   = "operation"
	DryRunKey      = "dry_run"

	// OCM fields
	OCMEnvironmentKey = "ocm_environment"
)

// LogFields holds dynamic key-value pairs for logging
type LogFields map[string]interface{}

// -----------------------------------------------------------------------------
// Context Setters
// -----------------------------------------------------------------------------

// WithLogField adds a single dynamic log field to the context.
// These fields will be extracted and included in all log entries.
func WithLogField(ctx context.Context, key string, value interface{}) context.Context {
	fields := GetLogFields(ctx)
	if fields == nil {
		fields = make(LogFields)
	}
	fields[key] = value
	return context.WithValue(ctx, LogFieldsKey, fields)
}

// WithLogFields adds multiple dynamic log fields to the context
func WithLogFields(ctx context.Context, newFields LogFields) context.Context {
	fields := GetLogFields(ctx)
	if fields == nil {
		fields = make(LogFields)
	}
	for k, v := range newFields {
		fields[k] = v
	}
	return context.WithValue(ctx, LogFieldsKey, fields)
}

// WithRunID returns a context with the reconciliation run ID set
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithLogField(ctx, RunIDKey, runID)
}

// WithIntegration returns a context with the integration name set
func WithIntegration(ctx context.Context, integration string) context.Context {
	return WithLogField(ctx, IntegrationKey, integration)
}

// WithCluster returns a context with the cluster name set
func WithCluster(ctx context.Context, cluster string) context.Context {
	return WithLogField(ctx, ClusterKey, cluster)
}

// WithClusterType returns a context with the cluster type set (osd, rosa, hypershift)
func WithClusterType(ctx context.Context, clusterType string) context.Context {
	return WithLogField(ctx, ClusterTypeKey, clusterType)
}

// WithPoolID returns a context with the machine pool / node pool ID set
func WithPoolID(ctx context.Context, poolID string) context.Context {
	return WithLogField(ctx, PoolIDKey, poolID)
}

// WithOperation returns a context with the reconciliation operation set (create, update, delete)
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithLogField(ctx, OperationKey, operation)
}

// WithDryRun returns a context with the dry-run flag set
func WithDryRun(ctx context.Context, dryRun bool) context.Context {
	return WithLogField(ctx, DryRunKey, dryRun)
}

// WithOCMEnvironment returns a context with the OCM environment name set
func WithOCMEnvironment(ctx context.Context, env string) context.Context {
	return WithLogField(ctx, OCMEnvironmentKey, env)
}

// WithErrorField returns a context with the error message set.
// Stack traces are captured only for unexpected/internal errors. Expected
// operational errors (network issues, OCM API 4xx/5xx, rejected plan entries)
// skip stack trace capture.
// If err is nil, returns the context unchanged.
func WithErrorField(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	ctx = WithLogField(ctx, ErrorKey, err.Error())

	if shouldCaptureStackTrace(err) {
		ctx = WithStackTraceField(ctx, CaptureStackTrace(1))
	}

	return ctx
}

// WithOTelTraceContext extracts OpenTelemetry trace context (trace_id, span_id)
// from the context and adds them as log fields for correlation.
// If no active span exists, returns the context unchanged.
func WithOTelTraceContext(ctx context.Context) context.Context {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ctx
	}

	if spanCtx.HasTraceID() {
		ctx = WithLogField(ctx, TraceIDKey, spanCtx.TraceID().String())
	}
	if spanCtx.HasSpanID() {
		ctx = WithLogField(ctx, SpanIDKey, spanCtx.SpanID().String())
	}

	return ctx
}

// -----------------------------------------------------------------------------
// Context Getters
// -----------------------------------------------------------------------------

// GetLogFields returns the dynamic log fields from the context, or nil if not set
func GetLogFields(ctx context.Context) LogFields {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(LogFieldsKey).(LogFields); ok {
		// Return a copy to avoid mutation
		fields := make(LogFields, len(v))
		for k, val := range v {
			fields[k] = val
		}
		return fields
	}
	return nil
}
