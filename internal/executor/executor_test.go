package executor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/events"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRecorder) RecordAction(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, operation+"/"+status)
}

type fakePublisher struct {
	events []events.ActionEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, evt events.ActionEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

func resolverFor(clients map[string]machinepool.Client) ClientResolver {
	return ClientResolverFunc(func(cluster string) (machinepool.Client, bool) {
		c, ok := clients[cluster]
		return c, ok
	})
}

func machinePool(t *testing.T, cluster, id string) machinepool.Pool {
	t.Helper()
	replicas := 2
	pool, err := machinepool.NewMachinePool(machinepool.Common{
		ID:          id,
		Cluster:     cluster,
		ClusterType: machinepool.ClusterTypeOSD,
		Replicas:    &replicas,
	}, "m5.xlarge", nil)
	require.NoError(t, err)
	return pool
}

func nodePool(t *testing.T, cluster, id string) machinepool.Pool {
	t.Helper()
	replicas := 1
	subnet := "subnet-1"
	pool, err := machinepool.NewNodePool(machinepool.Common{
		ID:          id,
		Cluster:     cluster,
		ClusterType: machinepool.ClusterTypeROSAHCP,
		Replicas:    &replicas,
	}, machinepool.AWSNodePool{InstanceType: "m5.xlarge"}, &subnet, nil)
	require.NoError(t, err)
	return pool
}

func TestNewExecutor(t *testing.T) {
	tests := []struct {
		name        string
		config      *ExecutorConfig
		expectError bool
	}{
		{
			name:        "nil config",
			config:      nil,
			expectError: true,
		},
		{
			name:        "missing resolver",
			config:      &ExecutorConfig{Logger: logger.NewTestLogger()},
			expectError: true,
		},
		{
			name:        "missing logger",
			config:      &ExecutorConfig{Resolver: resolverFor(nil)},
			expectError: true,
		},
		{
			name: "valid config",
			config: &ExecutorConfig{
				Resolver: resolverFor(nil),
				Logger:   logger.NewTestLogger(),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecutor(tt.config)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutorBuilder(t *testing.T) {
	exec, err := NewBuilder().
		WithResolver(resolverFor(nil)).
		WithLogger(logger.NewTestLogger()).
		WithDryRun(true).
		WithRecorder(&fakeRecorder{}).
		WithPublisher(&fakePublisher{}).
		WithComponent("test").
		Build()

	require.NoError(t, err)
	require.NotNil(t, exec)
	assert.True(t, exec.config.DryRun)
	assert.Equal(t, "test", exec.config.Component)
}

func TestAct_DispatchesByOperationAndVariant(t *testing.T) {
	mock := ocm_client.NewMockClient()
	exec, err := NewBuilder().
		WithResolver(resolverFor(map[string]machinepool.Client{"osd": mock, "hcp": mock})).
		WithLogger(logger.NewTestLogger()).
		Build()
	require.NoError(t, err)

	actions := []planner.Action{
		{Operation: planner.OperationCreate, Pool: machinePool(t, "osd", "a")},
		{Operation: planner.OperationUpdate, Pool: machinePool(t, "osd", "b")},
		{Operation: planner.OperationDelete, Pool: machinePool(t, "osd", "c")},
		{Operation: planner.OperationCreate, Pool: nodePool(t, "hcp", "d")},
		{Operation: planner.OperationUpdate, Pool: nodePool(t, "hcp", "e")},
		{Operation: planner.OperationDelete, Pool: nodePool(t, "hcp", "f")},
	}

	result, err := exec.Act(context.Background(), actions)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, map[ActionStatus]int{ActionExecuted: 6}, result.Count())
	assert.Equal(t, []string{
		"CreateMachinePool", "UpdateMachinePool", "DeleteMachinePool",
		"CreateNodePool", "UpdateNodePool", "DeleteNodePool",
	}, mock.CallMethods())

	assert.Equal(t, "osd", mock.Calls[0].Cluster)
	assert.Equal(t, "a", mock.Calls[0].Spec["id"])
	// node pool updates never carry the immutable subnet
	assert.NotContains(t, mock.Calls[4].Spec, "subnet")
	assert.Contains(t, mock.Calls[3].Spec, "subnet")
}

func TestAct_DryRunMakesNoCalls(t *testing.T) {
	mock := ocm_client.NewMockClient()
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}
	exec, err := NewBuilder().
		WithResolver(resolverFor(map[string]machinepool.Client{"osd": mock})).
		WithLogger(logger.NewTestLogger()).
		WithRecorder(recorder).
		WithPublisher(publisher).
		WithDryRun(true).
		Build()
	require.NoError(t, err)

	result, err := exec.Act(context.Background(), []planner.Action{
		{Operation: planner.OperationCreate, Pool: machinePool(t, "osd", "a")},
		{Operation: planner.OperationDelete, Pool: machinePool(t, "osd", "b")},
	})
	require.NoError(t, err)
	assert.Empty(t, mock.Calls)
	assert.Equal(t, map[ActionStatus]int{ActionDryRun: 2}, result.Count())
	assert.Equal(t, []string{"create/dry_run", "delete/dry_run"}, recorder.calls)

	require.Len(t, publisher.events, 2)
	assert.True(t, publisher.events[0].DryRun)
	assert.Equal(t, "dry_run", publisher.events[0].Status)
	assert.Equal(t, "a", publisher.events[0].PoolID)
	assert.Equal(t, "MachinePool", publisher.events[0].Kind)
	assert.Equal(t, "a", publisher.events[0].Payload["id"])
}

func TestAct_LogsFullPoolOnUpdate(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewLogger(logger.Config{Level: "info", Format: "text", Writer: &buf})
	require.NoError(t, err)
	publisher := &fakePublisher{}
	exec, err := NewBuilder().
		WithResolver(resolverFor(map[string]machinepool.Client{"hcp": ocm_client.NewMockClient()})).
		WithLogger(log).
		WithPublisher(publisher).
		WithDryRun(true).
		Build()
	require.NoError(t, err)

	_, err = exec.Act(context.Background(), []planner.Action{
		{Operation: planner.OperationUpdate, Pool: nodePool(t, "hcp", "workers")},
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "subnet-1")
	assert.Contains(t, buf.String(), "instance_type")

	require.Len(t, publisher.events, 1)
	assert.NotContains(t, publisher.events[0].Payload, "subnet")
	assert.NotContains(t, publisher.events[0].Payload, "aws_node_pool")
}

func TestAct_SkipsClustersWithoutClient(t *testing.T) {
	mock := ocm_client.NewMockClient()
	exec, err := NewBuilder().
		WithResolver(resolverFor(map[string]machinepool.Client{"known": mock})).
		WithLogger(logger.NewTestLogger()).
		Build()
	require.NoError(t, err)

	result, err := exec.Act(context.Background(), []planner.Action{
		{Operation: planner.OperationCreate, Pool: machinePool(t, "unknown", "a")},
		{Operation: planner.OperationCreate, Pool: machinePool(t, "known", "b")},
	})
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, ActionSkipped, result.Results[0].Status)
	assert.Equal(t, ActionExecuted, result.Results[1].Status)
	assert.Equal(t, []string{"CreateMachinePool"}, mock.CallMethods())
}

func TestAct_FirstErrorStops(t *testing.T) {
	boom := errors.New("boom")
	mock := ocm_client.NewMockClient()
	mock.MutateErrors["UpdateMachinePool"] = boom
	recorder := &fakeRecorder{}
	publisher := &fakePublisher{}

	exec, err := NewBuilder().
		WithResolver(resolverFor(map[string]machinepool.Client{"osd": mock})).
		WithLogger(logger.NewTestLogger()).
		WithRecorder(recorder).
		WithPublisher(publisher).
		Build()
	require.NoError(t, err)

	result, err := exec.Act(context.Background(), []planner.Action{
		{Operation: planner.OperationCreate, Pool: machinePool(t, "osd", "a")},
		{Operation: planner.OperationUpdate, Pool: machinePool(t, "osd", "b")},
		{Operation: planner.OperationDelete, Pool: machinePool(t, "osd", "c")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, planner.OperationUpdate, actionErr.Operation)
	assert.Equal(t, "osd", actionErr.Cluster)
	assert.Equal(t, "b", actionErr.PoolID)
	assert.Equal(t, "failed to update machine pool b on cluster osd: boom", actionErr.Error())

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, err, result.Error)
	require.Len(t, result.Results, 2)
	assert.Equal(t, ActionFailed, result.Results[1].Status)
	// the create that ran before the failure is not undone and the delete never runs
	assert.Equal(t, []string{"CreateMachinePool", "UpdateMachinePool"}, mock.CallMethods())
	assert.Equal(t, []string{"create/executed", "update/failed"}, recorder.calls)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, "failed", publisher.events[1].Status)
	assert.Contains(t, publisher.events[1].Error, "boom")
}

func TestAct_PublishFailureDoesNotFailAction(t *testing.T) {
	mock := ocm_client.NewMockClient()
	exec, err := NewBuilder().
		WithResolver(resolverFor(map[string]machinepool.Client{"osd": mock})).
		WithLogger(logger.NewTestLogger()).
		WithPublisher(&fakePublisher{err: errors.New("sink down")}).
		Build()
	require.NoError(t, err)

	result, err := exec.Act(context.Background(), []planner.Action{
		{Operation: planner.OperationCreate, Pool: machinePool(t, "osd", "a")},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
}

func TestAct_NoActions(t *testing.T) {
	exec, err := NewBuilder().
		WithResolver(resolverFor(nil)).
		WithLogger(logger.NewTestLogger()).
		Build()
	require.NoError(t, err)

	result, err := exec.Act(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.Results)
}

func TestActionErrorNodePool(t *testing.T) {
	err := &ActionError{
		Operation: planner.OperationDelete,
		Cluster:   "hcp",
		PoolID:    "workers",
		Kind:      "NodePool",
		Err:       errors.New("gone"),
	}
	assert.Equal(t, "failed to delete node pool workers on cluster hcp: gone", err.Error())
}
