package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/events"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultComponent = "machinepool-reconciler"

// NewExecutor creates a new Executor with the given configuration
func NewExecutor(config *ExecutorConfig) (*Executor, error) {
	if err := validateExecutorConfig(config); err != nil {
		return nil, err
	}

	return &Executor{
		config: config,
		log:    config.Logger,
	}, nil
}

func validateExecutorConfig(config *ExecutorConfig) error {
	if config == nil {
		return fmt.Errorf("config is required")
	}

	requiredFields := []string{
		"Resolver",
		"Logger",
	}

	for _, field := range requiredFields {
		if reflect.ValueOf(config).Elem().FieldByName(field).IsNil() {
			return fmt.Errorf("field %s is required", field)
		}
	}
	return nil
}

// Act runs the actions in order. For each action it logs the operation and
// the full payload; in dry-run mode it stops there. Actions on clusters the
// resolver has no client for are skipped. The first client error ends the
// run: it is returned wrapped in *ActionError and no later action is attempted.
// Successful actions are not rolled back.
func (e *Executor) Act(ctx context.Context, actions []planner.Action) (*ExecutionResult, error) {
	ctx, span := e.startTracedExecution(ctx, len(actions))
	defer span.End()

	ctx = logger.WithDryRun(ctx, e.config.DryRun)
	result := &ExecutionResult{Status: StatusSuccess}

	for _, action := range actions {
		res := e.act(ctx, action)
		result.Results = append(result.Results, res)
		if res.Status == ActionFailed {
			result.Status = StatusFailed
			result.Error = res.Error
			span.RecordError(res.Error)
			span.SetStatus(codes.Error, res.Error.Error())
			return result, res.Error
		}
	}

	counts := result.Count()
	e.log.Infof(ctx, "Actions finished: executed=%d dry_run=%d skipped=%d",
		counts[ActionExecuted], counts[ActionDryRun], counts[ActionSkipped])

	return result, nil
}

func (e *Executor) act(ctx context.Context, action planner.Action) ActionResult {
	pool := action.Pool
	ctx = logger.WithCluster(ctx, pool.GetCluster())
	ctx = logger.WithPoolID(ctx, pool.GetID())
	ctx = logger.WithOperation(ctx, string(action.Operation))

	e.log.Infof(ctx, "%s %s", action, renderPayload(pool.Payload()))

	// audit events carry the body sent to OCM
	payload := pool.Payload()
	if action.Operation == planner.OperationUpdate {
		payload = pool.UpdatePayload()
	}

	res := ActionResult{Action: action}
	start := time.Now()

	if e.config.DryRun {
		res.Status = ActionDryRun
		e.finish(ctx, action, payload, &res, start)
		return res
	}

	client, ok := e.config.Resolver.ClientFor(pool.GetCluster())
	if !ok || client == nil {
		e.log.Warnf(ctx, "No OCM client for cluster %s, skipping %s", pool.GetCluster(), action)
		res.Status = ActionSkipped
		e.finish(ctx, action, payload, &res, start)
		return res
	}

	var err error
	switch action.Operation {
	case planner.OperationCreate:
		err = pool.Create(ctx, client)
	case planner.OperationUpdate:
		err = pool.Update(ctx, client)
	case planner.OperationDelete:
		err = pool.Delete(ctx, client)
	default:
		err = fmt.Errorf("unknown operation %q", action.Operation)
	}

	if err != nil {
		res.Status = ActionFailed
		res.Error = &ActionError{
			Operation: action.Operation,
			Cluster:   pool.GetCluster(),
			PoolID:    pool.GetID(),
			Kind:      pool.Kind(),
			Err:       err,
		}
		errCtx := logger.WithErrorField(ctx, err)
		e.log.Errorf(errCtx, "Action %s failed", action)
	} else {
		res.Status = ActionExecuted
	}
	e.finish(ctx, action, payload, &res, start)
	return res
}

// finish records metrics and publishes the audit event. Publishing failures
// are logged and never fail the action.
func (e *Executor) finish(ctx context.Context, action planner.Action, payload map[string]interface{}, res *ActionResult, start time.Time) {
	res.Duration = time.Since(start)
	if e.config.Recorder != nil {
		e.config.Recorder.RecordAction(string(action.Operation), string(res.Status))
	}
	if e.config.Publisher == nil {
		return
	}
	evt := events.ActionEvent{
		Operation: string(action.Operation),
		Cluster:   action.Pool.GetCluster(),
		PoolID:    action.Pool.GetID(),
		Kind:      action.Pool.Kind(),
		Status:    string(res.Status),
		DryRun:    e.config.DryRun,
		Payload:   payload,
	}
	if res.Error != nil {
		evt.Error = res.Error.Error()
	}
	if err := e.config.Publisher.Publish(ctx, evt); err != nil {
		errCtx := logger.WithErrorField(ctx, err)
		e.log.Warnf(errCtx, "Failed to publish audit event for %s", action)
	}
}

// startTracedExecution creates an OTel span and adds trace context to logs.
// Caller must call span.End() when done.
func (e *Executor) startTracedExecution(ctx context.Context, actionCount int) (context.Context, trace.Span) {
	component := e.config.Component
	if component == "" {
		component = defaultComponent
	}
	ctx, span := otel.Tracer(component).Start(ctx, "Act",
		trace.WithAttributes(
			attribute.Int("actions", actionCount),
			attribute.Bool("dry_run", e.config.DryRun),
		))

	ctx = logger.WithOTelTraceContext(ctx)

	return ctx, span
}

func renderPayload(payload map[string]interface{}) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(b)
}

// ExecutorBuilder provides a fluent interface for building an Executor
type ExecutorBuilder struct {
	config *ExecutorConfig
}

// NewBuilder creates a new ExecutorBuilder
func NewBuilder() *ExecutorBuilder {
	return &ExecutorBuilder{
		config: &ExecutorConfig{},
	}
}

// WithDryRun sets dry-run mode
func (b *ExecutorBuilder) WithDryRun(dryRun bool) *ExecutorBuilder {
	b.config.DryRun = dryRun
	return b
}

// WithResolver sets the client resolver
func (b *ExecutorBuilder) WithResolver(resolver ClientResolver) *ExecutorBuilder {
	b.config.Resolver = resolver
	return b
}

// WithLogger sets the logger
func (b *ExecutorBuilder) WithLogger(log logger.Logger) *ExecutorBuilder {
	b.config.Logger = log
	return b
}

// WithRecorder sets the metrics recorder
func (b *ExecutorBuilder) WithRecorder(recorder Recorder) *ExecutorBuilder {
	b.config.Recorder = recorder
	return b
}

// WithPublisher sets the audit event publisher
func (b *ExecutorBuilder) WithPublisher(publisher Publisher) *ExecutorBuilder {
	b.config.Publisher = publisher
	return b
}

// WithComponent sets the component name used for tracing
func (b *ExecutorBuilder) WithComponent(component string) *ExecutorBuilder {
	b.config.Component = component
	return b
}

// Build creates the Executor
func (b *ExecutorBuilder) Build() (*Executor, error) {
	return NewExecutor(b.config)
}
