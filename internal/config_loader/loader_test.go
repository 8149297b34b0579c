package config_loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
apiVersion: machinepools.hyperfleet.io/v1alpha1
kind: ReconcilerConfig
metadata:
  name: osd-pools
  labels:
    hyperfleet.io/component: reconciler
spec:
  desiredState:
    path: /etc/clusters
  clusterSelector: 'product == "osd"'
  ocm:
    environments:
      - name: production
        url: https://api.openshift.com
        tokenEnv: OCM_TOKEN
        timeout: 30s
        retryAttempts: 5
        retryBackoff: linear
        qps: 10
        burst: 20
      - name: stage
        url: https://api.stage.openshift.com
  events:
    sinkUrl: http://events.example.com
  metrics:
    port: 9191
  serve:
    interval: 5m
  fetch:
    concurrency: 8
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	config, err := Load(writeConfig(t, validConfigYAML), nil)
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, APIVersionV1Alpha1, config.APIVersion)
	assert.Equal(t, ExpectedKind, config.Kind)
	assert.Equal(t, "osd-pools", config.Metadata.Name)
	assert.Equal(t, "reconciler", config.Metadata.Labels["hyperfleet.io/component"])
	assert.Equal(t, "/etc/clusters", config.Spec.DesiredState.Path)
	assert.Equal(t, `product == "osd"`, config.Spec.ClusterSelector)
	assert.Equal(t, []string{"production", "stage"}, config.EnvironmentNames())
	assert.Equal(t, "http://events.example.com", config.Spec.Events.SinkURL)
	assert.Equal(t, 9191, config.MetricsPort())
	assert.Equal(t, 8, config.Spec.Fetch.Concurrency)

	interval, err := config.ServeInterval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)

	prod := config.Environment("production")
	require.NotNil(t, prod)
	assert.Equal(t, 5, prod.RetryAttempts)
	assert.Equal(t, float32(10), prod.QPS)
	assert.Nil(t, config.Environment("missing"))
}

func TestLoadFromEnvConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, writeConfig(t, validConfigYAML))

	config, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "osd-pools", config.Metadata.Name)
}

func TestLoadMissingFile(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		contains string
	}{
		{name: "no path", path: "", contains: "config file path is required"},
		{name: "nonexistent", path: "/nonexistent/path/to/config.yaml", contains: "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigPath, "")
			config, err := Load(tt.path, nil)
			require.Error(t, err)
			assert.Nil(t, config)
			assert.Contains(t, err.Error(), tt.contains)

			var svcErr *apperrors.ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, apperrors.ErrorConfigNotFound, svcErr.Code)
		})
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	content := validConfigYAML + "  steps: []\n"
	_, err := Load(writeConfig(t, content), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field steps not found")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MPR_DESIRED_STATE_PATH", "/override/clusters")
	t.Setenv("MPR_CLUSTER_SELECTOR", "ccs")
	t.Setenv("MPR_INTEGRATION", "custom-integration")
	t.Setenv("MPR_METRICS_PORT", "9300")
	t.Setenv("MPR_SERVE_INTERVAL", "1m")

	config, err := Load(writeConfig(t, validConfigYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "/override/clusters", config.Spec.DesiredState.Path)
	assert.Equal(t, "ccs", config.Spec.ClusterSelector)
	assert.Equal(t, "custom-integration", config.IntegrationName())
	assert.Equal(t, 9300, config.MetricsPort())
	interval, err := config.ServeInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, interval)
}

func TestLoadFlagOverridesEnv(t *testing.T) {
	t.Setenv("MPR_DESIRED_STATE_PATH", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("desired-state", "", "")
	flags.String("cluster-selector", "", "")
	flags.Int("metrics-port", 0, "")
	require.NoError(t, flags.Parse([]string{"--desired-state=/from/flag", "--metrics-port=9400"}))

	config, err := Load(writeConfig(t, validConfigYAML), flags)
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", config.Spec.DesiredState.Path)
	assert.Equal(t, 9400, config.MetricsPort())
	// unchanged flags keep the file value
	assert.Equal(t, `product == "osd"`, config.Spec.ClusterSelector)
}

func TestParse(t *testing.T) {
	config, err := Parse([]byte(validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "osd-pools", config.Metadata.Name)

	_, err = Parse([]byte("apiVersion: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestUnsupportedAPIVersion(t *testing.T) {
	cfg := baseConfig()
	cfg.APIVersion = "machinepools.hyperfleet.io/v2"
	err := validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported apiVersion")
}

func TestInvalidKind(t *testing.T) {
	cfg := baseConfig()
	cfg.Kind = "MachinePoolConfig"
	err := validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid kind "MachinePoolConfig"`)
}

func TestIsSupportedAPIVersion(t *testing.T) {
	assert.True(t, IsSupportedAPIVersion(APIVersionV1Alpha1))
	assert.False(t, IsSupportedAPIVersion("v1"))
	assert.False(t, IsSupportedAPIVersion(""))
}

func TestDefaults(t *testing.T) {
	cfg := baseConfig()
	assert.Equal(t, DefaultIntegration, cfg.IntegrationName())
	assert.Equal(t, DefaultMetricsPort, cfg.MetricsPort())
	interval, err := cfg.ServeInterval()
	require.NoError(t, err)
	assert.Equal(t, DefaultServeInterval, interval)
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		timeout string
		want    time.Duration
		wantErr bool
	}{
		{timeout: "", want: 0},
		{timeout: "2s", want: 2 * time.Second},
		{timeout: "1m30s", want: 90 * time.Second},
		{timeout: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			env := &OCMEnvironment{Timeout: tt.timeout}
			got, err := env.ParseTimeout()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientConfig(t *testing.T) {
	t.Setenv("TEST_OCM_TOKEN", "secret")
	env := &OCMEnvironment{
		Name:          "production",
		URL:           "https://api.openshift.com",
		TokenEnv:      "TEST_OCM_TOKEN",
		Timeout:       "15s",
		RetryAttempts: 2,
		RetryBackoff:  "constant",
		QPS:           5,
		Burst:         10,
	}

	cfg, err := env.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.openshift.com", cfg.BaseURL)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.RetryAttempts)
	assert.Equal(t, ocm_client.BackoffStrategy("constant"), cfg.RetryBackoff)
	assert.Equal(t, float32(5), cfg.QPS)
	assert.Equal(t, 10, cfg.Burst)

	env.Timeout = "bogus"
	_, err = env.ClientConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment production: invalid timeout")
}

func TestTokenWithoutEnv(t *testing.T) {
	env := &OCMEnvironment{Name: "stage"}
	assert.Empty(t, env.Token())
}

func TestLoadResolvesRelativeDesiredStatePath(t *testing.T) {
	relative := strings.Replace(validConfigYAML, "path: /etc/clusters", "path: ./clusters", 1)
	configPath := writeConfig(t, relative)

	config, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(configPath), "clusters"), config.Spec.DesiredState.Path)

	t.Run("env value is not rebased", func(t *testing.T) {
		t.Setenv("MPR_DESIRED_STATE_PATH", "local/clusters")
		config, err := Load(configPath, nil)
		require.NoError(t, err)
		assert.Equal(t, "local/clusters", config.Spec.DesiredState.Path)
	})
}
