package current_state

import (
	"encoding/json"
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// machinePoolWire is the subset of an OCM machine pool read by the reconciler.
// Replicas, autoscaling, taints and labels may be missing.
type machinePoolWire struct {
	ID           string                              `json:"id"`
	InstanceType string                              `json:"instance_type"`
	Replicas     *int                                `json:"replicas"`
	Autoscaling  *machinepool.MachinePoolAutoscaling `json:"autoscaling"`
	Taints       []machinepool.Taint                 `json:"taints"`
	Labels       map[string]string                   `json:"labels"`
}

type nodePoolWire struct {
	ID          string                           `json:"id"`
	Replicas    *int                             `json:"replicas"`
	Autoscaling *machinepool.NodePoolAutoscaling `json:"autoscaling"`
	AWSNodePool *machinepool.AWSNodePool         `json:"aws_node_pool"`
	Taints      []machinepool.Taint              `json:"taints"`
	Labels      map[string]string                `json:"labels"`
	Subnet      *string                          `json:"subnet"`
}

func decodeWire(item map[string]interface{}, into interface{}) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func machinePoolFromWire(item map[string]interface{}, cluster machinepool.ClusterInfo) (machinepool.Pool, error) {
	var w machinePoolWire
	if err := decodeWire(item, &w); err != nil {
		return nil, fmt.Errorf("failed to decode machine pool: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("machine pool without id")
	}
	return machinepool.NewObservedMachinePool(commonFromWire(w.ID, w.Replicas, w.Taints, w.Labels, cluster), w.InstanceType, w.Autoscaling)
}

func nodePoolFromWire(item map[string]interface{}, cluster machinepool.ClusterInfo) (machinepool.Pool, error) {
	var w nodePoolWire
	if err := decodeWire(item, &w); err != nil {
		return nil, fmt.Errorf("failed to decode node pool: %w", err)
	}
	if w.ID == "" {
		return nil, fmt.Errorf("node pool without id")
	}
	var aws machinepool.AWSNodePool
	if w.AWSNodePool != nil {
		aws = *w.AWSNodePool
	}
	return machinepool.NewObservedNodePool(commonFromWire(w.ID, w.Replicas, w.Taints, w.Labels, cluster), aws, w.Subnet, w.Autoscaling)
}

func commonFromWire(id string, replicas *int, taints []machinepool.Taint, labels map[string]string, cluster machinepool.ClusterInfo) machinepool.Common {
	return machinepool.Common{
		ID:          id,
		Cluster:     cluster.Name,
		ClusterType: cluster.Type,
		CCS:         cluster.CCS,
		Replicas:    replicas,
		Taints:      taints,
		Labels:      labels,
	}
}
