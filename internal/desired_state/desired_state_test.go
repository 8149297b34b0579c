package desired_state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clustersYAML = `
clusters:
  - name: c1
    ocm: {environment: production, orgId: "123"}
    spec: {product: osd, ccs: true}
    machinePools:
      - id: worker
        instance_type: m5.xlarge
        replicas: 3
        taints: [{key: a, value: b, effect: NoSchedule}]
        labels: {k: v}
  - name: c2
    ocm: {environment: production}
    spec: {product: rosa, hypershift: true}
    machinePools: []
  - name: c3
    ocm: {environment: stage}
    spec: {product: rosa}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "clusters.yaml", clustersYAML)

	clusters, err := Load(path)
	require.NoError(t, err)
	require.Len(t, clusters, 3)

	c1 := clusters[0]
	assert.Equal(t, "c1", c1.Name)
	assert.Equal(t, "production", c1.Environment())
	assert.Equal(t, "123", c1.OCM.OrgID)
	assert.True(t, c1.Spec.CCS)
	require.Len(t, c1.MachinePools, 1)
	pool := c1.MachinePools[0]
	assert.Equal(t, "worker", pool.ID)
	assert.Equal(t, "m5.xlarge", pool.InstanceType)
	require.NotNil(t, pool.Replicas)
	assert.Equal(t, 3, *pool.Replicas)
	assert.Equal(t, []machinepool.Taint{{Key: "a", Value: "b", Effect: "NoSchedule"}}, pool.Taints)
	assert.Equal(t, map[string]string{"k": "v"}, pool.Labels)

	// [] and absent stay distinguishable
	assert.NotNil(t, clusters[1].MachinePools)
	assert.Empty(t, clusters[1].MachinePools)
	assert.Nil(t, clusters[2].MachinePools)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "clusters:\n  - name: b\n")
	writeFile(t, dir, "a.yml", "clusters:\n  - name: a\n---\nclusters:\n  - name: a2\n")
	writeFile(t, dir, "notes.txt", "not yaml")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))
	writeFile(t, filepath.Join(dir, "nested"), "c.yaml", "clusters:\n  - name: c\n")

	clusters, err := Load(dir)
	require.NoError(t, err)

	var names []string
	for _, c := range clusters {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "a2", "b"}, names)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "unknown key",
			files:   map[string]string{"c.yaml": "clusters:\n  - name: a\n    machinePool: []\n"},
			wantErr: "machinePool",
		},
		{
			name:    "unknown pool key",
			files:   map[string]string{"c.yaml": "clusters:\n  - name: a\n    machinePools:\n      - id: p\n        size: 3\n"},
			wantErr: "size",
		},
		{
			name: "duplicate cluster across files",
			files: map[string]string{
				"a.yaml": "clusters:\n  - name: dup\n",
				"b.yaml": "clusters:\n  - name: dup\n",
			},
			wantErr: "cluster dup declared in both",
		},
		{
			name:    "quote in cluster name",
			files:   map[string]string{"c.yaml": "clusters:\n  - name: \"a' or name != 'b\"\n"},
			wantErr: "invalid cluster name",
		},
		{
			name:    "uppercase cluster name",
			files:   map[string]string{"c.yaml": "clusters:\n  - name: Prod\n"},
			wantErr: "invalid cluster name \"Prod\"",
		},
		{
			name:    "cluster without name",
			files:   map[string]string{"c.yaml": "clusters:\n  - ocm: {environment: x}\n"},
			wantErr: "cluster without name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	var svcErr *apperrors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, apperrors.ErrorDesiredState, svcErr.Code)
}

func TestParseEmptyDocument(t *testing.T) {
	clusters, err := Parse([]byte(""), "empty")
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestClassifyClusterType(t *testing.T) {
	tests := []struct {
		name    string
		spec    *ClusterSpec
		want    machinepool.ClusterType
		wantErr string
	}{
		{name: "osd", spec: &ClusterSpec{Product: "osd"}, want: machinepool.ClusterTypeOSD},
		{name: "osd ignores hypershift", spec: &ClusterSpec{Product: "osd", Hypershift: true}, want: machinepool.ClusterTypeOSD},
		{name: "rosa classic", spec: &ClusterSpec{Product: "rosa"}, want: machinepool.ClusterTypeROSAClassic},
		{name: "rosa hcp", spec: &ClusterSpec{Product: "rosa", Hypershift: true}, want: machinepool.ClusterTypeROSAHCP},
		{name: "missing spec", wantErr: "cluster c is missing spec"},
		{name: "unknown product", spec: &ClusterSpec{Product: "aro"}, wantErr: "unknown cluster type for cluster c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ClassifyClusterType(Cluster{Name: "c", Spec: tt.spec})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				var unclassifiable *UnclassifiableClusterTypeError
				assert.True(t, errors.As(err, &unclassifiable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntegrationEnabled(t *testing.T) {
	assert.True(t, IntegrationEnabled(DefaultIntegration, Cluster{}))
	assert.True(t, IntegrationEnabled(DefaultIntegration, Cluster{Disable: &Disable{Integrations: []string{"other"}}}))
	assert.False(t, IntegrationEnabled(DefaultIntegration, Cluster{Disable: &Disable{Integrations: []string{"other", DefaultIntegration}}}))
}

func TestCompatible(t *testing.T) {
	ocm := &OCMRef{Environment: "production"}
	assert.True(t, Compatible(Cluster{OCM: ocm, MachinePools: []machinepool.DeclaredPool{}}))
	assert.False(t, Compatible(Cluster{OCM: ocm}))
	assert.False(t, Compatible(Cluster{MachinePools: []machinepool.DeclaredPool{}}))
}

func TestSelector(t *testing.T) {
	c := Cluster{
		Name: "prod-1",
		OCM:  &OCMRef{Environment: "production"},
		Spec: &ClusterSpec{Product: "rosa", Hypershift: true},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{expr: `environment == "production"`, want: true},
		{expr: `product == "rosa" && hypershift`, want: true},
		{expr: `name.startsWith("stage-")`, want: false},
		{expr: `!ccs`, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := NewSelector(tt.expr)
			require.NoError(t, err)
			got, err := s.Matches(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("cluster without spec", func(t *testing.T) {
		s, err := NewSelector(`product == ""`)
		require.NoError(t, err)
		got, err := s.Matches(Cluster{Name: "x"})
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("empty expression matches all", func(t *testing.T) {
		s, err := NewSelector("")
		require.NoError(t, err)
		assert.Nil(t, s)
		got, err := s.Matches(c)
		require.NoError(t, err)
		assert.True(t, got)
	})
}

func TestSelectorCompileErrors(t *testing.T) {
	for _, expr := range []string{`name ==`, `unknownVar == 1`, `name`} {
		t.Run(expr, func(t *testing.T) {
			_, err := NewSelector(expr)
			assert.Error(t, err)
		})
	}
}

func TestFilterClusters(t *testing.T) {
	ocm := &OCMRef{Environment: "production"}
	pools := []machinepool.DeclaredPool{}
	clusters := []Cluster{
		{Name: "managed", OCM: ocm, MachinePools: pools},
		{Name: "disabled", OCM: ocm, MachinePools: pools, Disable: &Disable{Integrations: []string{DefaultIntegration}}},
		{Name: "no-ocm", MachinePools: pools},
		{Name: "no-pools", OCM: ocm},
		{Name: "stage", OCM: &OCMRef{Environment: "stage"}, MachinePools: pools},
	}
	ctx := context.Background()

	t.Run("without selector", func(t *testing.T) {
		got, errs := FilterClusters(ctx, logger.NewTestLogger(), clusters, "", nil)
		require.Empty(t, errs)
		assert.Equal(t, []string{"managed", "stage"}, clusterNames(got))
	})

	t.Run("with selector", func(t *testing.T) {
		s, err := NewSelector(`environment == "production"`)
		require.NoError(t, err)
		got, errs := FilterClusters(ctx, logger.NewTestLogger(), clusters, DefaultIntegration, s)
		require.Empty(t, errs)
		assert.Equal(t, []string{"managed"}, clusterNames(got))
	})

	t.Run("other integration name", func(t *testing.T) {
		got, errs := FilterClusters(ctx, logger.NewTestLogger(), clusters, "another", nil)
		require.Empty(t, errs)
		assert.Equal(t, []string{"managed", "disabled", "stage"}, clusterNames(got))
	})

	t.Run("evaluation error skips only that cluster", func(t *testing.T) {
		s, err := NewSelector(`100 / (name == "stage" ? 0 : 1) > 0`)
		require.NoError(t, err)
		got, errs := FilterClusters(ctx, logger.NewTestLogger(), clusters, DefaultIntegration, s)
		assert.Equal(t, []string{"managed"}, clusterNames(got))

		require.Len(t, errs, 1)
		assert.Equal(t, planner.KindSelectorError, planner.KindOf(errs[0]))
		assert.Contains(t, errs[0].Error(), "cluster stage")
	})
}

func TestBuildDesiredState(t *testing.T) {
	replicas := 2
	clusters := []Cluster{
		{
			Name:         "osd",
			OCM:          &OCMRef{Environment: "production"},
			Spec:         &ClusterSpec{Product: "osd", CCS: true},
			MachinePools: []machinepool.DeclaredPool{{ID: "worker", InstanceType: "m5.xlarge", Replicas: &replicas}},
		},
		{
			Name:         "hcp",
			Spec:         &ClusterSpec{Product: "rosa", Hypershift: true},
			MachinePools: []machinepool.DeclaredPool{},
		},
		{Name: "undeclared", Spec: &ClusterSpec{Product: "osd"}},
		{Name: "broken", Spec: &ClusterSpec{Product: "aro"}, MachinePools: []machinepool.DeclaredPool{}},
	}

	desired, errs := BuildDesiredState(clusters)

	require.Len(t, desired, 2)
	assert.Equal(t, planner.DesiredClusterPools{
		ClusterName: "osd",
		ClusterType: machinepool.ClusterTypeOSD,
		CCS:         true,
		Pools:       clusters[0].MachinePools,
	}, desired["osd"])
	assert.Equal(t, machinepool.ClusterTypeROSAHCP, desired["hcp"].ClusterType)
	assert.NotNil(t, desired["hcp"].Pools)

	require.Len(t, errs, 1)
	assert.Equal(t, planner.KindUnclassifiableClusterType, planner.KindOf(errs[0]))
	assert.Contains(t, errs[0].Error(), "unknown cluster type for cluster broken")
}

func clusterNames(clusters []Cluster) []string {
	names := make([]string, 0, len(clusters))
	for _, c := range clusters {
		names = append(names, c.Name)
	}
	return names
}
