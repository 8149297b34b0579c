package desired_state

import (
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// ClassifyClusterType maps the cluster spec to a cluster type:
// osd is OSD, rosa is ROSA HCP when hypershift is set and ROSA classic otherwise.
func ClassifyClusterType(c Cluster) (machinepool.ClusterType, error) {
	if c.Spec == nil {
		return "", &UnclassifiableClusterTypeError{
			Cluster: c.Name,
			Reason:  fmt.Sprintf("cluster %s is missing spec", c.Name),
		}
	}
	switch c.Spec.Product {
	case ProductOSD:
		return machinepool.ClusterTypeOSD, nil
	case ProductROSA:
		if c.Spec.Hypershift {
			return machinepool.ClusterTypeROSAHCP, nil
		}
		return machinepool.ClusterTypeROSAClassic, nil
	default:
		return "", &UnclassifiableClusterTypeError{Cluster: c.Name}
	}
}

// ClusterInfo classifies the cluster and returns the metadata pools are built against
func ClusterInfo(c Cluster) (machinepool.ClusterInfo, error) {
	t, err := ClassifyClusterType(c)
	if err != nil {
		return machinepool.ClusterInfo{}, err
	}
	return machinepool.ClusterInfo{Name: c.Name, Type: t, CCS: c.Spec.CCS}, nil
}
