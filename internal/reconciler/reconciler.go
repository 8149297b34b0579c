// Package reconciler runs one reconciliation pass: it loads the declared
// clusters, fetches their pools from OCM, plans the difference and acts on it.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/current_state"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/desired_state"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/executor"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	pkgotel "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/otel"
	"k8s.io/apimachinery/pkg/util/wait"
)

// ErrInvalidUpdates is returned by Run when planning found invalid updates or
// when clusters could not be reconciled. Actions for other clusters were still run.
var ErrInvalidUpdates = errors.New("invalid updates")

// Metrics receives run observations. pkg/health.MetricsServer implements it.
type Metrics interface {
	executor.Recorder
	RecordPlanError(kind string)
	RecordRun(duration time.Duration, success bool)
}

// Config holds the collaborators and settings of a Reconciler
type Config struct {
	// DesiredStatePath is a cluster file or a directory of cluster files
	DesiredStatePath string
	// Integration is the name clusters opt out of with disable.integrations
	Integration string
	// Selector narrows the declared clusters; nil matches all
	Selector *desired_state.Selector
	// Clients maps OCM environment name to its client
	Clients map[string]ocm_client.Client
	// DefaultEnvironment is used for clusters that name no OCM environment
	DefaultEnvironment string
	// FetchConcurrency bounds parallel current-state fetches
	FetchConcurrency int
	DryRun           bool
	Component        string
	Logger           logger.Logger
	// Metrics is optional
	Metrics Metrics
	// Publisher is optional
	Publisher executor.Publisher
}

// Reconciler runs reconciliation passes. Concurrent calls to Run are serialized.
type Reconciler struct {
	mu     sync.Mutex
	config Config
	log    logger.Logger
}

// RunResult describes one reconciliation pass
type RunResult struct {
	RunID  string
	DryRun bool
	// Plan is nil when the run failed before planning
	Plan *planner.Plan
	// Execution is nil when the run failed before acting
	Execution *executor.ExecutionResult
	// Excluded lists declared clusters left out of planning
	Excluded []string
	Duration time.Duration
}

// New creates a Reconciler
func New(config Config) (*Reconciler, error) {
	if config.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if config.DesiredStatePath == "" {
		return nil, fmt.Errorf("desired state path is required")
	}
	if len(config.Clients) == 0 {
		return nil, fmt.Errorf("at least one OCM client is required")
	}
	if config.Integration == "" {
		config.Integration = desired_state.DefaultIntegration
	}
	if config.Component == "" {
		config.Component = "machinepool-reconciler"
	}
	return &Reconciler{config: config, log: config.Logger}, nil
}

// Run performs one reconciliation pass. Planned actions are acted on even when
// planning reported errors; those errors are then returned joined under
// ErrInvalidUpdates. A client error stops acting and is returned as is.
func (r *Reconciler) Run(ctx context.Context) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &RunResult{RunID: uuid.New().String(), DryRun: r.config.DryRun}

	ctx = logger.WithRunID(ctx, result.RunID)
	ctx = logger.WithIntegration(ctx, r.config.Integration)
	ctx = logger.WithDryRun(ctx, r.config.DryRun)
	ctx, span := pkgotel.StartRunSpan(ctx, r.config.Component, result.RunID, r.config.DryRun)
	defer span.End()

	err := r.run(ctx, result)
	result.Duration = time.Since(start)

	if r.config.Metrics != nil {
		r.config.Metrics.RecordRun(result.Duration, err == nil)
	}
	if err != nil {
		span.RecordError(err)
		r.log.Errorf(logger.WithErrorField(ctx, err), "Reconciliation run failed after %s", result.Duration)
		return result, err
	}
	r.log.Infof(ctx, "Reconciliation run finished in %s", result.Duration)
	return result, nil
}

func (r *Reconciler) run(ctx context.Context, result *RunResult) error {
	declared, err := desired_state.Load(r.config.DesiredStatePath)
	if err != nil {
		return err
	}

	clusters, runErrs := desired_state.FilterClusters(ctx, r.log, declared, r.config.Integration, r.config.Selector)
	if len(clusters) == 0 && len(runErrs) == 0 {
		r.log.Debug(ctx, "No machinePools definitions found in desired state")
		result.Plan = &planner.Plan{}
		result.Execution = &executor.ExecutionResult{Status: executor.StatusSuccess}
		return nil
	}
	r.log.Infof(ctx, "Reconciling %d of %d declared clusters", len(clusters), len(declared))

	desired, buildErrs := desired_state.BuildDesiredState(clusters)
	runErrs = append(runErrs, buildErrs...)

	clients, assignErrs := r.assignClients(ctx, clusters, desired)
	runErrs = append(runErrs, assignErrs...)

	fetched, err := current_state.Fetch(ctx, r.log, clients, clusterInfos(desired), current_state.Options{
		Concurrency: r.config.FetchConcurrency,
	})
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(fetched.Failed) {
		runErrs = append(runErrs, apperrors.OCMAPIError("cluster %s: %v", name, fetched.Failed[name]))
	}
	// A cluster without current state would plan a create for every pool
	for _, name := range fetched.Excluded() {
		delete(desired, name)
	}
	result.Excluded = excludedClusters(clusters, desired)

	plan := planner.CalculateDiff(ctx, r.log, fetched.State, desired)
	plan.Errors = append(runErrs, plan.Errors...)
	result.Plan = plan

	if r.config.Metrics != nil {
		for _, e := range plan.Errors {
			kind := string(planner.KindOf(e))
			if kind == "" {
				kind = "Other"
			}
			r.config.Metrics.RecordPlanError(kind)
		}
	}

	exec, err := executor.NewBuilder().
		WithDryRun(r.config.DryRun).
		WithResolver(clients).
		WithLogger(r.log).
		WithRecorder(r.recorder()).
		WithPublisher(r.config.Publisher).
		WithComponent(r.config.Component).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	execution, actErr := exec.Act(ctx, plan.Actions)
	result.Execution = execution

	for _, e := range plan.Errors {
		r.log.Errorf(logger.WithErrorField(ctx, e), "Invalid update")
	}
	if actErr != nil {
		return actErr
	}
	if len(plan.Errors) == 0 {
		return nil
	}
	joined := errors.Join(plan.Errors...)
	return fmt.Errorf("%w: %w", ErrInvalidUpdates,
		apperrors.InvalidUpdates("%d error(s) found:\n%v", len(plan.Errors), joined))
}

// assignClients registers every desired cluster with the client of its OCM
// environment. Clusters pointing at an unconfigured environment are dropped.
func (r *Reconciler) assignClients(ctx context.Context, clusters []desired_state.Cluster, desired planner.DesiredState) (*ocm_client.ClientMap, []error) {
	clients := ocm_client.NewClientMap(r.config.Clients)
	var errs []error
	for _, c := range clusters {
		if _, ok := desired[c.Name]; !ok {
			continue
		}
		env := c.Environment()
		if env == "" {
			env = r.config.DefaultEnvironment
		}
		if !clients.HasEnvironment(env) {
			delete(desired, c.Name)
			errs = append(errs, apperrors.OCMEnvironmentNotFound("cluster %s references unknown OCM environment %q", c.Name, env))
			continue
		}
		r.log.Debugf(logger.WithOCMEnvironment(logger.WithCluster(ctx, c.Name), env), "Assigned cluster to OCM environment")
		clients.Assign(c.Name, env)
	}
	return clients, errs
}

// recorder avoids handing the executor a typed nil interface
func (r *Reconciler) recorder() executor.Recorder {
	if r.config.Metrics == nil {
		return nil
	}
	return r.config.Metrics
}

func clusterInfos(desired planner.DesiredState) []machinepool.ClusterInfo {
	infos := make([]machinepool.ClusterInfo, 0, len(desired))
	for _, name := range sortedKeys(desired) {
		d := desired[name]
		infos = append(infos, machinepool.ClusterInfo{Name: d.ClusterName, Type: d.ClusterType, CCS: d.CCS})
	}
	return infos
}

func excludedClusters(clusters []desired_state.Cluster, desired planner.DesiredState) []string {
	var excluded []string
	for _, c := range clusters {
		if _, ok := desired[c.Name]; !ok {
			excluded = append(excluded, c.Name)
		}
	}
	sort.Strings(excluded)
	return excluded
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Serve runs a pass immediately and then every interval until ctx is done.
// Run errors are logged by Run and do not stop the loop.
func (r *Reconciler) Serve(ctx context.Context, interval time.Duration) {
	wait.UntilWithContext(ctx, func(ctx context.Context) {
		_, _ = r.Run(ctx)
	}, interval)
}
