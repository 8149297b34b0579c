// Package desired_state loads declared cluster files and turns the clusters
// managed by the reconciler into the planner's desired state.
package desired_state

import (
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// DefaultIntegration is the integration name clusters opt out of with disable.integrations
const DefaultIntegration = "ocm-machine-pools"

// Products understood by ClassifyClusterType
const (
	ProductOSD  = "osd"
	ProductROSA = "rosa"
)

// File is the document shape of a desired-state file
type File struct {
	Clusters []Cluster `yaml:"clusters"`
}

// Cluster is one declared cluster.
// MachinePools is nil when the key is absent and empty when declared as [].
type Cluster struct {
	Name         string                     `yaml:"name"`
	OCM          *OCMRef                    `yaml:"ocm,omitempty"`
	Spec         *ClusterSpec               `yaml:"spec,omitempty"`
	Disable      *Disable                   `yaml:"disable,omitempty"`
	MachinePools []machinepool.DeclaredPool `yaml:"machinePools"`
}

// OCMRef names the OCM environment (and organization) a cluster lives in
type OCMRef struct {
	Environment string `yaml:"environment"`
	OrgID       string `yaml:"orgId,omitempty"`
}

// ClusterSpec carries the cluster attributes used for classification
type ClusterSpec struct {
	Product    string `yaml:"product"`
	Hypershift bool   `yaml:"hypershift,omitempty"`
	CCS        bool   `yaml:"ccs,omitempty"`
}

// Disable lists the integrations a cluster opted out of
type Disable struct {
	Integrations []string `yaml:"integrations,omitempty"`
}

// Environment returns the OCM environment name, or "" when ocm is not set
func (c Cluster) Environment() string {
	if c.OCM == nil {
		return ""
	}
	return c.OCM.Environment
}

// UnclassifiableClusterTypeError is returned for clusters that map to no cluster type
type UnclassifiableClusterTypeError struct {
	Cluster string
	Reason  string
}

func (e *UnclassifiableClusterTypeError) Error() string {
	switch e.Reason {
	case "":
		return fmt.Sprintf("unknown cluster type for cluster %s", e.Cluster)
	default:
		return e.Reason
	}
}

// Expected marks the error as a declaration problem so no stack trace is logged
func (e *UnclassifiableClusterTypeError) Expected() bool { return true }
