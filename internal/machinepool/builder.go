package machinepool

// ClusterInfo is the cluster metadata a declared pool is built against
type ClusterInfo struct {
	Name string
	Type ClusterType
	CCS  bool
}

// FromDeclared builds the pool variant matching the cluster type from a
// declaration. Node pools are built for ROSA HCP clusters, machine pools otherwise.
func FromDeclared(declared DeclaredPool, cluster ClusterInfo) (Pool, error) {
	common := Common{
		ID:          declared.ID,
		Cluster:     cluster.Name,
		ClusterType: cluster.Type,
		CCS:         cluster.CCS,
		Replicas:    declared.Replicas,
		Taints:      declared.Taints,
		Labels:      declared.Labels,
	}

	if cluster.Type.UsesNodePools() {
		var autoscaling *NodePoolAutoscaling
		if declared.Autoscale != nil {
			a, err := NewNodePoolAutoscaling(declared.Autoscale.MinReplicas, declared.Autoscale.MaxReplicas)
			if err != nil {
				return nil, withPool(err, cluster.Name, declared.ID)
			}
			autoscaling = a
		}
		pool, err := NewNodePool(common, AWSNodePool{InstanceType: declared.InstanceType}, declared.Subnet, autoscaling)
		if err != nil {
			return nil, err
		}
		return pool, nil
	}

	var autoscaling *MachinePoolAutoscaling
	if declared.Autoscale != nil {
		a, err := NewMachinePoolAutoscaling(declared.Autoscale.MinReplicas, declared.Autoscale.MaxReplicas)
		if err != nil {
			return nil, withPool(err, cluster.Name, declared.ID)
		}
		autoscaling = a
	}
	pool, err := NewMachinePool(common, declared.InstanceType, autoscaling)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
