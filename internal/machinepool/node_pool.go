package machinepool

import (
	"context"
	"encoding/json"

	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
)

// AWSNodePool holds the AWS specific, immutable attributes of a node pool
type AWSNodePool struct {
	InstanceType string `json:"instance_type"`
}

// NodePool is a pool of a ROSA HCP (HyperShift) cluster
type NodePool struct {
	Common
	AWSNodePool AWSNodePool
	Subnet      *string
	Autoscaling *NodePoolAutoscaling
}

var _ Pool = (*NodePool)(nil)

// NewNodePool builds a node pool from declared attributes
func NewNodePool(common Common, awsNodePool AWSNodePool, subnet *string, autoscaling *NodePoolAutoscaling) (*NodePool, error) {
	return newNodePool(common, awsNodePool, subnet, autoscaling, true)
}

// NewObservedNodePool builds a node pool from what OCM reports
func NewObservedNodePool(common Common, awsNodePool AWSNodePool, subnet *string, autoscaling *NodePoolAutoscaling) (*NodePool, error) {
	return newNodePool(common, awsNodePool, subnet, autoscaling, false)
}

func newNodePool(common Common, awsNodePool AWSNodePool, subnet *string, autoscaling *NodePoolAutoscaling, declared bool) (*NodePool, error) {
	if err := common.validate(autoscaling != nil, declared); err != nil {
		return nil, withPool(err, common.Cluster, common.ID)
	}
	if declared {
		if err := validateDeclaredMetadata(common.Taints, common.Labels); err != nil {
			return nil, withPool(err, common.Cluster, common.ID)
		}
	}
	if autoscaling != nil {
		if _, err := NewNodePoolAutoscaling(autoscaling.MinReplica, autoscaling.MaxReplica); err != nil {
			return nil, withPool(err, common.Cluster, common.ID)
		}
		autoscaling = &NodePoolAutoscaling{MinReplica: autoscaling.MinReplica, MaxReplica: autoscaling.MaxReplica}
	}
	if subnet != nil {
		s := *subnet
		subnet = &s
	}

	common.Replicas = copyIntPtr(common.Replicas)
	common.Taints = copyTaints(common.Taints)
	common.Labels = copyLabels(common.Labels)

	return &NodePool{
		Common:      common,
		AWSNodePool: awsNodePool,
		Subnet:      subnet,
		Autoscaling: autoscaling,
	}, nil
}

func (n *NodePool) isPool() {}

func (n *NodePool) Kind() string { return "NodePool" }

func (n *NodePool) Create(ctx context.Context, c Client) error {
	return c.CreateNodePool(ctx, n.Cluster, n.Payload())
}

func (n *NodePool) Update(ctx context.Context, c Client) error {
	return c.UpdateNodePool(ctx, n.Cluster, n.UpdatePayload())
}

func (n *NodePool) Delete(ctx context.Context, c Client) error {
	return c.DeleteNodePool(ctx, n.Cluster, n.Payload())
}

func (n *NodePool) HasDiff(ctx context.Context, log logger.Logger, declared DeclaredPool) bool {
	var autoscaling AutoscalingPolicy
	if n.Autoscaling != nil {
		autoscaling = n.Autoscaling
	}
	commonDiff := n.commonHasDiff(ctx, log, "node pool", declared)
	return commonDiff ||
		n.AWSNodePool.InstanceType != declared.InstanceType ||
		stringPtrValue(n.Subnet) != stringPtrValue(declared.Subnet) ||
		autoscalingHasDiff(autoscaling, declared.Autoscale)
}

func (n *NodePool) InvalidDiff(declared DeclaredPool) string {
	if n.AWSNodePool.InstanceType != declared.InstanceType {
		return "instance_type"
	}
	if stringPtrValue(n.Subnet) != stringPtrValue(declared.Subnet) {
		return "subnet"
	}
	return ""
}

// Deletable is always true, HyperShift has no protected default pool
func (n *NodePool) Deletable() bool {
	return true
}

func (n *NodePool) Payload() map[string]interface{} {
	out := map[string]interface{}{
		"aws_node_pool": map[string]interface{}{"instance_type": n.AWSNodePool.InstanceType},
	}
	if n.Subnet != nil {
		out["subnet"] = *n.Subnet
	}
	n.commonPayload(out, false)
	if n.Autoscaling != nil {
		out["autoscaling"] = n.Autoscaling.payload()
	}
	return out
}

// UpdatePayload omits aws_node_pool and subnet, which OCM cannot change in place
func (n *NodePool) UpdatePayload() map[string]interface{} {
	out := map[string]interface{}{}
	n.commonPayload(out, true)
	if n.Autoscaling != nil {
		out["autoscaling"] = n.Autoscaling.payload()
	}
	return out
}

func (n *NodePool) MarshalJSON() ([]byte, error) {
	out := n.Payload()
	out["cluster"] = n.Cluster
	return json.Marshal(out)
}
