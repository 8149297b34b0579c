package current_state

import (
	"context"
	"errors"
	"testing"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(mock *ocm_client.MockClient, clusters ...string) *ocm_client.ClientMap {
	m := ocm_client.NewClientMap(map[string]ocm_client.Client{"production": mock})
	for _, c := range clusters {
		m.Assign(c, "production")
	}
	return m
}

func TestFetchCluster_MachinePools(t *testing.T) {
	mock := ocm_client.NewMockClient()
	mock.MachinePools["osd"] = []map[string]interface{}{
		{
			"kind":          "MachinePool",
			"id":            "worker",
			"instance_type": "m5.xlarge",
			"replicas":      3,
			"labels":        map[string]interface{}{"k": "v"},
			"taints": []interface{}{
				map[string]interface{}{"key": "a", "value": "b", "effect": "NoSchedule"},
			},
		},
		{
			"id":            "auto",
			"instance_type": "m5.2xlarge",
			"autoscaling":   map[string]interface{}{"min_replicas": 1, "max_replicas": 5},
		},
		{
			"id":            "bare",
			"instance_type": "m5.xlarge",
		},
	}

	cluster := machinepool.ClusterInfo{Name: "osd", Type: machinepool.ClusterTypeOSD, CCS: true}
	pools, err := FetchCluster(context.Background(), mock, cluster)
	require.NoError(t, err)
	require.Len(t, pools, 3)

	worker, ok := pools[0].(*machinepool.MachinePool)
	require.True(t, ok)
	assert.Equal(t, "worker", worker.ID)
	assert.Equal(t, "osd", worker.Cluster)
	assert.Equal(t, machinepool.ClusterTypeOSD, worker.ClusterType)
	assert.True(t, worker.CCS)
	assert.Equal(t, "m5.xlarge", worker.InstanceType)
	require.NotNil(t, worker.Replicas)
	assert.Equal(t, 3, *worker.Replicas)
	assert.Equal(t, map[string]string{"k": "v"}, worker.Labels)
	assert.Equal(t, []machinepool.Taint{{Key: "a", Value: "b", Effect: "NoSchedule"}}, worker.Taints)

	auto := pools[1].(*machinepool.MachinePool)
	require.NotNil(t, auto.Autoscaling)
	assert.Equal(t, 1, auto.Autoscaling.MinReplicas)
	assert.Equal(t, 5, auto.Autoscaling.MaxReplicas)
	assert.Nil(t, auto.Replicas)

	bare := pools[2].(*machinepool.MachinePool)
	assert.Nil(t, bare.Replicas)
	assert.Nil(t, bare.Autoscaling)
}

func TestFetchCluster_NodePools(t *testing.T) {
	mock := ocm_client.NewMockClient()
	mock.NodePools["hcp"] = []map[string]interface{}{
		{
			"id":            "workers",
			"aws_node_pool": map[string]interface{}{"instance_type": "m5.xlarge", "tags": map[string]interface{}{"x": "y"}},
			"autoscaling":   map[string]interface{}{"min_replica": 2, "max_replica": 4},
			"subnet":        "subnet-1",
			"status":        map[string]interface{}{"current_replicas": 2},
		},
	}

	cluster := machinepool.ClusterInfo{Name: "hcp", Type: machinepool.ClusterTypeROSAHCP}
	pools, err := FetchCluster(context.Background(), mock, cluster)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	np, ok := pools[0].(*machinepool.NodePool)
	require.True(t, ok)
	assert.Equal(t, "workers", np.ID)
	assert.Equal(t, "m5.xlarge", np.AWSNodePool.InstanceType)
	require.NotNil(t, np.Subnet)
	assert.Equal(t, "subnet-1", *np.Subnet)
	require.NotNil(t, np.Autoscaling)
	assert.Equal(t, 2, np.Autoscaling.MinReplica)
	assert.Equal(t, 4, np.Autoscaling.MaxReplica)
}

func TestFetchCluster_Errors(t *testing.T) {
	tests := []struct {
		name    string
		items   []map[string]interface{}
		listErr error
		wantErr string
	}{
		{
			name:    "list error",
			listErr: errors.New("boom"),
			wantErr: "failed to list machine pools: boom",
		},
		{
			name:    "missing id",
			items:   []map[string]interface{}{{"instance_type": "m5.xlarge"}},
			wantErr: "machine pool without id",
		},
		{
			name: "replicas and autoscaling",
			items: []map[string]interface{}{{
				"id":          "p",
				"replicas":    1,
				"autoscaling": map[string]interface{}{"min_replicas": 1, "max_replicas": 2},
			}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "wrong type",
			items:   []map[string]interface{}{{"id": "p", "replicas": "three"}},
			wantErr: "failed to decode machine pool",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := ocm_client.NewMockClient()
			mock.MachinePools["c"] = tt.items
			mock.ListError = tt.listErr

			_, err := FetchCluster(context.Background(), mock, machinepool.ClusterInfo{Name: "c", Type: machinepool.ClusterTypeROSAClassic})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFetch(t *testing.T) {
	mock := ocm_client.NewMockClient()
	mock.MachinePools["ok"] = []map[string]interface{}{{"id": "worker", "instance_type": "m5.xlarge", "replicas": 2}}
	mock.MachinePools["empty"] = nil
	mock.ListErrors["broken"] = errors.New("unavailable")

	resolver := newResolver(mock, "ok", "empty", "broken")
	clusters := []machinepool.ClusterInfo{
		{Name: "ok", Type: machinepool.ClusterTypeOSD},
		{Name: "empty", Type: machinepool.ClusterTypeOSD},
		{Name: "broken", Type: machinepool.ClusterTypeOSD},
		{Name: "unassigned", Type: machinepool.ClusterTypeOSD},
	}

	result, err := Fetch(context.Background(), logger.NewTestLogger(), resolver, clusters, Options{Concurrency: 2})
	require.NoError(t, err)

	require.Contains(t, result.State, "ok")
	assert.Len(t, result.State["ok"], 1)
	require.Contains(t, result.State, "empty")
	assert.Empty(t, result.State["empty"])
	assert.NotContains(t, result.State, "broken")
	assert.NotContains(t, result.State, "unassigned")

	require.Contains(t, result.Failed, "broken")
	assert.Contains(t, result.Failed["broken"].Error(), "unavailable")
	assert.Equal(t, []string{"unassigned"}, result.Skipped)
	assert.Equal(t, []string{"broken", "unassigned"}, result.Excluded())
}

func TestFetch_Canceled(t *testing.T) {
	mock := ocm_client.NewMockClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Fetch(ctx, logger.NewTestLogger(), newResolver(mock, "c"),
		[]machinepool.ClusterInfo{{Name: "c", Type: machinepool.ClusterTypeOSD}}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
