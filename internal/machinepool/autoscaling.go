package machinepool

// AutoscalingPolicy is the common contract of the two autoscaling shapes.
// OCM names the fields differently for machine pools (min_replicas/max_replicas)
// and node pools (min_replica/max_replica), so the shapes are kept apart.
type AutoscalingPolicy interface {
	GetMin() int
	GetMax() int
	// HasDiff reports whether the declared bounds differ from this policy
	HasDiff(declared DeclaredAutoscale) bool
}

// MachinePoolAutoscaling is the autoscaling block of an OSD / ROSA classic machine pool
type MachinePoolAutoscaling struct {
	MinReplicas int `json:"min_replicas"`
	MaxReplicas int `json:"max_replicas"`
}

// NewMachinePoolAutoscaling validates min <= max
func NewMachinePoolAutoscaling(minReplicas, maxReplicas int) (*MachinePoolAutoscaling, error) {
	if err := validateBounds("min_replicas", "max_replicas", minReplicas, maxReplicas); err != nil {
		return nil, err
	}
	return &MachinePoolAutoscaling{MinReplicas: minReplicas, MaxReplicas: maxReplicas}, nil
}

func (a *MachinePoolAutoscaling) GetMin() int { return a.MinReplicas }
func (a *MachinePoolAutoscaling) GetMax() int { return a.MaxReplicas }

func (a *MachinePoolAutoscaling) HasDiff(declared DeclaredAutoscale) bool {
	return autoscaleHasDiff(a, declared)
}

func (a *MachinePoolAutoscaling) payload() map[string]interface{} {
	return map[string]interface{}{
		"min_replicas": a.MinReplicas,
		"max_replicas": a.MaxReplicas,
	}
}

// NodePoolAutoscaling is the autoscaling block of a HyperShift node pool.
// HyperShift uses the singular field names.
type NodePoolAutoscaling struct {
	MinReplica int `json:"min_replica"`
	MaxReplica int `json:"max_replica"`
}

// NewNodePoolAutoscaling validates min <= max
func NewNodePoolAutoscaling(minReplica, maxReplica int) (*NodePoolAutoscaling, error) {
	if err := validateBounds("min_replica", "max_replica", minReplica, maxReplica); err != nil {
		return nil, err
	}
	return &NodePoolAutoscaling{MinReplica: minReplica, MaxReplica: maxReplica}, nil
}

func (a *NodePoolAutoscaling) GetMin() int { return a.MinReplica }
func (a *NodePoolAutoscaling) GetMax() int { return a.MaxReplica }

func (a *NodePoolAutoscaling) HasDiff(declared DeclaredAutoscale) bool {
	return autoscaleHasDiff(a, declared)
}

func (a *NodePoolAutoscaling) payload() map[string]interface{} {
	return map[string]interface{}{
		"min_replica": a.MinReplica,
		"max_replica": a.MaxReplica,
	}
}

func autoscaleHasDiff(p AutoscalingPolicy, declared DeclaredAutoscale) bool {
	return p.GetMin() != declared.MinReplicas || p.GetMax() != declared.MaxReplicas
}

func validateBounds(minField, maxField string, minValue, maxValue int) error {
	if minValue < 0 {
		return newValidationError(minField, "must be >= 0, got %d", minValue)
	}
	if minValue > maxValue {
		return newValidationError(maxField, "%s (%d) must be greater than or equal to %s (%d)", maxField, maxValue, minField, minValue)
	}
	return nil
}
