package machinepool

import (
	"context"
	"encoding/json"

	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
)

// MachinePool is a pool of an OSD or ROSA classic cluster
type MachinePool struct {
	Common
	InstanceType string
	Autoscaling  *MachinePoolAutoscaling
}

var _ Pool = (*MachinePool)(nil)

// NewMachinePool builds a machine pool from declared attributes. Exactly one of
// replicas and autoscaling must be set, and taints/labels must be valid.
func NewMachinePool(common Common, instanceType string, autoscaling *MachinePoolAutoscaling) (*MachinePool, error) {
	return newMachinePool(common, instanceType, autoscaling, true)
}

// NewObservedMachinePool builds a machine pool from what OCM reports. OCM may
// omit both replicas and autoscaling, which is tolerated here; both set is not.
func NewObservedMachinePool(common Common, instanceType string, autoscaling *MachinePoolAutoscaling) (*MachinePool, error) {
	return newMachinePool(common, instanceType, autoscaling, false)
}

func newMachinePool(common Common, instanceType string, autoscaling *MachinePoolAutoscaling, declared bool) (*MachinePool, error) {
	if err := common.validate(autoscaling != nil, declared); err != nil {
		return nil, withPool(err, common.Cluster, common.ID)
	}
	if declared {
		if err := validateDeclaredMetadata(common.Taints, common.Labels); err != nil {
			return nil, withPool(err, common.Cluster, common.ID)
		}
	}
	if autoscaling != nil {
		if _, err := NewMachinePoolAutoscaling(autoscaling.MinReplicas, autoscaling.MaxReplicas); err != nil {
			return nil, withPool(err, common.Cluster, common.ID)
		}
		autoscaling = &MachinePoolAutoscaling{MinReplicas: autoscaling.MinReplicas, MaxReplicas: autoscaling.MaxReplicas}
	}

	common.Replicas = copyIntPtr(common.Replicas)
	common.Taints = copyTaints(common.Taints)
	common.Labels = copyLabels(common.Labels)

	return &MachinePool{
		Common:       common,
		InstanceType: instanceType,
		Autoscaling:  autoscaling,
	}, nil
}

func (m *MachinePool) isPool() {}

func (m *MachinePool) Kind() string { return "MachinePool" }

func (m *MachinePool) Create(ctx context.Context, c Client) error {
	return c.CreateMachinePool(ctx, m.Cluster, m.Payload())
}

func (m *MachinePool) Update(ctx context.Context, c Client) error {
	return c.UpdateMachinePool(ctx, m.Cluster, m.UpdatePayload())
}

func (m *MachinePool) Delete(ctx context.Context, c Client) error {
	return c.DeleteMachinePool(ctx, m.Cluster, m.Payload())
}

func (m *MachinePool) HasDiff(ctx context.Context, log logger.Logger, declared DeclaredPool) bool {
	var autoscaling AutoscalingPolicy
	if m.Autoscaling != nil {
		autoscaling = m.Autoscaling
	}
	commonDiff := m.commonHasDiff(ctx, log, "machine pool", declared)
	return commonDiff ||
		m.InstanceType != declared.InstanceType ||
		autoscalingHasDiff(autoscaling, declared.Autoscale)
}

func (m *MachinePool) InvalidDiff(declared DeclaredPool) string {
	if m.InstanceType != declared.InstanceType {
		return "instance_type"
	}
	return ""
}

// Deletable is false for the default worker pool of a non-CCS OSD cluster
func (m *MachinePool) Deletable() bool {
	return !(m.ClusterType == ClusterTypeOSD && m.ID == DefaultMachinePoolID && !m.CCS)
}

func (m *MachinePool) Payload() map[string]interface{} {
	out := map[string]interface{}{"instance_type": m.InstanceType}
	m.commonPayload(out, false)
	if m.Autoscaling != nil {
		out["autoscaling"] = m.Autoscaling.payload()
	}
	return out
}

// UpdatePayload omits instance_type, which OCM cannot change in place
func (m *MachinePool) UpdatePayload() map[string]interface{} {
	out := map[string]interface{}{}
	m.commonPayload(out, true)
	if m.Autoscaling != nil {
		out["autoscaling"] = m.Autoscaling.payload()
	}
	return out
}

func (m *MachinePool) MarshalJSON() ([]byte, error) {
	out := m.Payload()
	out["cluster"] = m.Cluster
	return json.Marshal(out)
}
