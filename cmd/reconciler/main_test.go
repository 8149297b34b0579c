package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/dryrun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testdataDir = filepath.Join("..", "..", "test", "testdata", "dryrun")

// writeTestConfig writes a config pointing at the dry-run cluster fixtures
func writeTestConfig(t *testing.T) string {
	t.Helper()
	clusters, err := filepath.Abs(filepath.Join(testdataDir, "clusters.yaml"))
	require.NoError(t, err)

	config := fmt.Sprintf(`
apiVersion: machinepools.hyperfleet.io/v1alpha1
kind: ReconcilerConfig
metadata:
  name: cli-test
spec:
  desiredState:
    path: %s
  ocm:
    environments:
      - name: production
        url: https://api.openshift.com
        retryAttempts: 1
`, clusters)
	path := filepath.Join(t.TempDir(), "reconciler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func offlineArgs(t *testing.T, command string, extra ...string) []string {
	args := []string{
		command,
		"--config", writeTestConfig(t),
		"--offline-responses", filepath.Join(testdataDir, "ocm-responses.json"),
		"--log-level", "error",
		"--log-output", "stderr",
	}
	return append(args, extra...)
}

func decodeTrace(t *testing.T, out string) dryrun.TraceJSON {
	t.Helper()
	var trace dryrun.TraceJSON
	require.NoError(t, json.Unmarshal([]byte(out), &trace), out)
	return trace
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Machine Pool Reconciler")
	assert.Contains(t, out, "Version:    "+version)
}

func TestPlanCommand_Text(t *testing.T) {
	out, err := execute(t, offlineArgs(t, "plan")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Dry run: true")
	assert.Contains(t, out, "Actions (2)")
	assert.Contains(t, out, "Update")
	assert.Contains(t, out, "hcp-prod")
	assert.Contains(t, out, "infra")
	assert.Contains(t, out, "Result: SUCCESS")
}

func TestPlanCommand_JSON(t *testing.T) {
	out, err := execute(t, offlineArgs(t, "plan", "--output", "json")...)
	require.NoError(t, err)

	trace := decodeTrace(t, out)
	assert.True(t, trace.DryRun)
	assert.Equal(t, "SUCCESS", trace.Status)
	assert.Equal(t, 2, trace.Summary["update"])
	require.Len(t, trace.Actions, 2)

	assert.Equal(t, "hcp-prod", trace.Actions[0].Cluster)
	assert.Equal(t, "NodePool", trace.Actions[0].Kind)
	assert.Equal(t, "osd-prod", trace.Actions[1].Cluster)
	assert.Equal(t, "infra", trace.Actions[1].PoolID)
	for _, a := range trace.Actions {
		assert.Equal(t, "dry_run", a.Status)
	}
	for _, req := range trace.APIRequests {
		assert.Equal(t, "GET", req.Method, "plan must not mutate")
	}
}

func TestRunCommand_ActsOffline(t *testing.T) {
	out, err := execute(t, offlineArgs(t, "run", "-o", "json")...)
	require.NoError(t, err)

	trace := decodeTrace(t, out)
	assert.False(t, trace.DryRun)
	for _, a := range trace.Actions {
		assert.Equal(t, "executed", a.Status)
	}

	var patches int
	for _, req := range trace.APIRequests {
		if req.Method == "PATCH" {
			patches++
		}
	}
	assert.Equal(t, 2, patches)
}

func TestRunCommand_InvalidOutput(t *testing.T) {
	_, err := execute(t, offlineArgs(t, "run", "-o", "yaml")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRunCommand_MissingConfig(t *testing.T) {
	t.Setenv("MPR_CONFIG", "")
	_, err := execute(t, "run", "--log-output", "stderr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file path is required")
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, err := execute(t, "validate", "--config", writeTestConfig(t))
		require.NoError(t, err)
		assert.Contains(t, out, "Validation: SUCCESS")
		assert.Regexp(t, `Desired State\s+│ PASS\s+│ 2 clusters declared`, out)
	})

	t.Run("selector override from flag", func(t *testing.T) {
		out, err := execute(t, "validate", "--config", writeTestConfig(t), "--cluster-selector", "hypershift", "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"valid": true`)
	})

	t.Run("invalid", func(t *testing.T) {
		out, err := execute(t, "validate", "--config", writeTestConfig(t), "--cluster-selector", "product ==")
		require.ErrorIs(t, err, errValidationFailed)
		assert.Contains(t, out, "Validation: FAILED")
		assert.Contains(t, out, "spec.clusterSelector")
	})
}
