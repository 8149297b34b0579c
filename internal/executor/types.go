package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/events"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
)

// ExecutionStatus represents the status of execution (runtime perspective)
type ExecutionStatus string

const (
	// StatusSuccess indicates every action was executed, dry-run or skipped
	StatusSuccess ExecutionStatus = "success"
	// StatusFailed indicates a client call failed and the remaining actions were not run
	StatusFailed ExecutionStatus = "failed"
)

// ActionStatus is the outcome of a single action
type ActionStatus string

const (
	ActionExecuted ActionStatus = "executed"
	ActionDryRun   ActionStatus = "dry_run"
	// ActionSkipped means no client could be resolved for the action's cluster
	ActionSkipped ActionStatus = "skipped"
	ActionFailed  ActionStatus = "failed"
)

// ClientResolver resolves the OCM client responsible for a cluster
type ClientResolver interface {
	ClientFor(cluster string) (machinepool.Client, bool)
}

// ClientResolverFunc adapts a function to ClientResolver
type ClientResolverFunc func(cluster string) (machinepool.Client, bool)

func (f ClientResolverFunc) ClientFor(cluster string) (machinepool.Client, bool) {
	return f(cluster)
}

// Recorder receives one observation per action outcome
type Recorder interface {
	RecordAction(operation, status string)
}

// Publisher receives an audit event per action outcome
type Publisher interface {
	Publish(ctx context.Context, evt events.ActionEvent) error
}

// ExecutorConfig holds configuration for the executor
type ExecutorConfig struct {
	// DryRun logs actions without calling the client
	DryRun bool
	// Resolver resolves a client per cluster name
	Resolver ClientResolver
	// Logger is the logger instance
	Logger logger.Logger
	// Recorder is optional
	Recorder Recorder
	// Publisher is optional
	Publisher Publisher
	// Component names the tracer
	Component string
}

// Executor dispatches planned actions to the OCM client of each cluster.
// Actions run sequentially; the first client error stops the run.
type Executor struct {
	config *ExecutorConfig
	log    logger.Logger
}

// ActionResult is the outcome of a single action
type ActionResult struct {
	Action   planner.Action
	Status   ActionStatus
	Duration time.Duration
	Error    error
}

// ExecutionResult contains the result of acting on a plan
type ExecutionResult struct {
	// Status is the overall execution status (runtime perspective)
	Status ExecutionStatus
	// Results holds one entry per action that was reached, in order
	Results []ActionResult
	// Error is the client error that stopped execution, if any
	Error error
}

// Count returns the number of results per status
func (r *ExecutionResult) Count() map[ActionStatus]int {
	counts := map[ActionStatus]int{}
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}

// ActionError wraps a client error with the action that raised it
type ActionError struct {
	Operation planner.Operation
	Cluster   string
	PoolID    string
	Kind      string
	Err       error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("failed to %s %s %s on cluster %s: %v", e.Operation, kindLabel(e.Kind), e.PoolID, e.Cluster, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func kindLabel(kind string) string {
	if kind == "NodePool" {
		return "node pool"
	}
	return "machine pool"
}
