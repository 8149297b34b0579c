package planner

import (
	"cmp"
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// Operation is the mutation an action performs
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Action is a single planned mutation. For create and update Pool is the
// desired pool, for delete it is the current one.
type Action struct {
	Operation Operation
	Pool      machinepool.Pool
}

// String renders the action the way it is logged: [operation cluster id]
func (a Action) String() string {
	return fmt.Sprintf("[%s %s %s]", a.Operation, a.Pool.GetCluster(), a.Pool.GetID())
}

// Key returns the composite key of the action's pool
func (a Action) Key() PoolKey {
	return PoolKey{Cluster: a.Pool.GetCluster(), PoolID: a.Pool.GetID()}
}

// PoolKey identifies a pool remotely: pool IDs are only unique within a cluster
type PoolKey struct {
	Cluster string
	PoolID  string
}

// Compare orders keys by cluster, then pool id
func (k PoolKey) Compare(other PoolKey) int {
	if c := cmp.Compare(k.Cluster, other.Cluster); c != 0 {
		return c
	}
	return cmp.Compare(k.PoolID, other.PoolID)
}

func (k PoolKey) String() string {
	return k.Cluster + "/" + k.PoolID
}

// DesiredClusterPools is the declared state of one cluster. A nil Pools means
// nothing was declared, an empty slice means the cluster was declared with no
// pools; the delete guard treats both the same.
type DesiredClusterPools struct {
	ClusterName string
	ClusterType machinepool.ClusterType
	CCS         bool
	Pools       []machinepool.DeclaredPool
}

func (d DesiredClusterPools) clusterInfo() machinepool.ClusterInfo {
	return machinepool.ClusterInfo{Name: d.ClusterName, Type: d.ClusterType, CCS: d.CCS}
}

// DesiredState maps cluster name to its declared pools
type DesiredState map[string]DesiredClusterPools

// CurrentState maps cluster name to the pools OCM reports for it
type CurrentState map[string][]machinepool.Pool

// Plan is the output of CalculateDiff. Errors never stop other actions from being planned.
type Plan struct {
	Actions []Action
	Errors  []error
}

// Empty reports whether the plan has neither actions nor errors
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0 && len(p.Errors) == 0
}

// Count returns the number of actions per operation
func (p *Plan) Count() map[Operation]int {
	counts := map[Operation]int{}
	for _, a := range p.Actions {
		counts[a.Operation]++
	}
	return counts
}
