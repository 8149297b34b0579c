package dryrun

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/executor"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, id string) machinepool.Pool {
	t.Helper()
	replicas := 3
	pool, err := machinepool.NewMachinePool(machinepool.Common{
		ID:          id,
		Cluster:     "c1",
		ClusterType: machinepool.ClusterTypeOSD,
		Replicas:    &replicas,
	}, "m5.xlarge", nil)
	require.NoError(t, err)
	return pool
}

func testPlan(t *testing.T, errs ...error) *planner.Plan {
	return &planner.Plan{
		Actions: []planner.Action{
			{Operation: planner.OperationCreate, Pool: testPool(t, "new")},
			{Operation: planner.OperationDelete, Pool: testPool(t, "old")},
		},
		Errors: errs,
	}
}

func TestFormatText_PlannedOnly(t *testing.T) {
	trace := &PlanTrace{RunID: "run-1", DryRun: true, Plan: testPlan(t)}

	output := trace.FormatText()

	assert.Contains(t, output, "Machine Pool Reconciliation")
	assert.Contains(t, output, "Run: run-1")
	assert.Contains(t, output, "Dry run: true")
	assert.Contains(t, output, "Actions (2)")
	assert.Contains(t, output, "Create")
	assert.Contains(t, output, "Delete")
	assert.Contains(t, output, "MachinePool")
	assert.Contains(t, output, "planned")
	assert.NotContains(t, output, "Errors (")
	assert.Contains(t, output, "Result: SUCCESS")
}

func TestFormatText_NoChanges(t *testing.T) {
	trace := &PlanTrace{Plan: &planner.Plan{}}
	output := trace.FormatText()
	assert.Contains(t, output, "Actions (0)")
	assert.Contains(t, output, "No changes")
	assert.Contains(t, output, "Result: SUCCESS")
}

func TestFormatText_ExecutionFailure(t *testing.T) {
	plan := testPlan(t)
	actionErr := &executor.ActionError{
		Operation: planner.OperationCreate,
		Cluster:   "c1",
		PoolID:    "new",
		Kind:      "MachinePool",
		Err:       errors.New("quota exceeded"),
	}
	trace := &PlanTrace{
		Plan: plan,
		Result: &executor.ExecutionResult{
			Status: executor.StatusFailed,
			Error:  actionErr,
			Results: []executor.ActionResult{
				{Action: plan.Actions[0], Status: executor.ActionFailed, Error: actionErr},
			},
		},
	}

	output := trace.FormatText()
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "not_run")
	assert.Contains(t, output, "[1] Error: failed to create machine pool new on cluster c1: quota exceeded")
	assert.Contains(t, output, "Result: FAILED")
}

func TestFormatText_PlanErrorsAndRequests(t *testing.T) {
	tr, err := NewTransport(nil)
	require.NoError(t, err)
	tr.Requests = append(tr.Requests, RequestRecord{
		Method:     "POST",
		URL:        "https://api.openshift.com/api/clusters_mgmt/v1/clusters/c1/machine_pools",
		Body:       []byte(`{"id":"new"}`),
		StatusCode: 201,
		Response:   []byte(`{"id":"new"}`),
	})

	trace := &PlanTrace{
		Plan: testPlan(t,
			planner.NewUnclassifiableClusterError("c9", errors.New("unknown cluster type for cluster c9")),
			errors.New("plain failure"),
		),
		Transport: tr,
		Verbose:   true,
	}

	output := trace.FormatText()
	assert.Contains(t, output, "Errors (2)")
	assert.Contains(t, output, "[1] UnclassifiableClusterType: unknown cluster type for cluster c9")
	assert.Contains(t, output, "[2] plain failure")
	assert.Contains(t, output, "OCM Requests (1)")
	assert.Contains(t, output, "POST https://api.openshift.com/api/clusters_mgmt/v1/clusters/c1/machine_pools -> 201")
	assert.Contains(t, output, "[verbose] Request body:")
	assert.Contains(t, output, "[verbose] Payload:")
	assert.Contains(t, output, "Result: FAILED")
}

func TestFormatJSON(t *testing.T) {
	plan := testPlan(t, planner.NewUnclassifiableClusterError("c9", errors.New("unknown cluster type for cluster c9")))
	trace := &PlanTrace{
		RunID:  "run-2",
		DryRun: true,
		Plan:   plan,
		Result: &executor.ExecutionResult{
			Status: executor.StatusSuccess,
			Results: []executor.ActionResult{
				{Action: plan.Actions[0], Status: executor.ActionDryRun},
				{Action: plan.Actions[1], Status: executor.ActionDryRun},
			},
		},
		Verbose: true,
	}

	data, err := trace.FormatJSON()
	require.NoError(t, err)

	var parsed TraceJSON
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "run-2", parsed.RunID)
	assert.True(t, parsed.DryRun)
	assert.Equal(t, "FAILED", parsed.Status)
	assert.Equal(t, map[string]int{"create": 1, "delete": 1, "errors": 1}, parsed.Summary)

	require.Len(t, parsed.Actions, 2)
	assert.Equal(t, "create", parsed.Actions[0].Operation)
	assert.Equal(t, "c1", parsed.Actions[0].Cluster)
	assert.Equal(t, "new", parsed.Actions[0].PoolID)
	assert.Equal(t, "dry_run", parsed.Actions[0].Status)
	assert.Equal(t, "new", parsed.Actions[0].Payload["id"])

	require.Len(t, parsed.Errors, 1)
	assert.Equal(t, "UnclassifiableClusterType", parsed.Errors[0].Kind)
}
