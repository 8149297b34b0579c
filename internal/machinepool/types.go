// Package machinepool models the two pool variants managed by the reconciler:
// machine pools of OSD / ROSA classic clusters and node pools of ROSA HCP
// (HyperShift) clusters.
package machinepool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
)

// DefaultMachinePoolID is the ID OCM gives the default worker pool of a classic cluster
const DefaultMachinePoolID = "worker"

// ClusterType classifies a cluster and decides which pool variant applies
type ClusterType string

const (
	ClusterTypeOSD         ClusterType = "osd"
	ClusterTypeROSAClassic ClusterType = "rosa"
	ClusterTypeROSAHCP     ClusterType = "hypershift"
)

// UsesNodePools reports whether pools on this cluster type are HyperShift node pools
func (t ClusterType) UsesNodePools() bool {
	return t == ClusterTypeROSAHCP
}

// Taint is a Kubernetes node taint as exchanged with OCM
type Taint struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Effect string `json:"effect" yaml:"effect"`
}

// DeclaredAutoscale is the declared autoscaling block. Declarations always use
// the plural field names regardless of the pool variant.
type DeclaredAutoscale struct {
	MinReplicas int `json:"min_replicas" yaml:"min_replicas"`
	MaxReplicas int `json:"max_replicas" yaml:"max_replicas"`
}

// DeclaredPool is one entry of a cluster's declared machinePools list
type DeclaredPool struct {
	ID           string             `json:"id" yaml:"id"`
	InstanceType string             `json:"instance_type" yaml:"instance_type"`
	Replicas     *int               `json:"replicas,omitempty" yaml:"replicas,omitempty"`
	Autoscale    *DeclaredAutoscale `json:"autoscale,omitempty" yaml:"autoscale,omitempty"`
	Taints       []Taint            `json:"taints,omitempty" yaml:"taints,omitempty"`
	Labels       map[string]string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Subnet       *string            `json:"subnet,omitempty" yaml:"subnet,omitempty"`
}

// String renders the declaration as JSON for error messages
func (d DeclaredPool) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Sprintf("%+v", struct{ ID string }{d.ID})
	}
	return string(b)
}

// Client is the subset of the OCM client a pool needs to mutate itself.
// Every call receives the owning cluster name and the wire-serialized pool.
type Client interface {
	CreateMachinePool(ctx context.Context, cluster string, spec map[string]interface{}) error
	UpdateMachinePool(ctx context.Context, cluster string, spec map[string]interface{}) error
	DeleteMachinePool(ctx context.Context, cluster string, spec map[string]interface{}) error
	CreateNodePool(ctx context.Context, cluster string, spec map[string]interface{}) error
	UpdateNodePool(ctx context.Context, cluster string, spec map[string]interface{}) error
	DeleteNodePool(ctx context.Context, cluster string, spec map[string]interface{}) error
}

// Pool is implemented by *MachinePool and *NodePool only
type Pool interface {
	GetID() string
	GetCluster() string
	GetClusterType() ClusterType
	// Kind returns "MachinePool" or "NodePool"
	Kind() string

	Create(ctx context.Context, c Client) error
	Update(ctx context.Context, c Client) error
	Delete(ctx context.Context, c Client) error

	// HasDiff compares the pool against a declaration. Label or taint
	// differences are logged as a warning since OCM applies them to new nodes only.
	HasDiff(ctx context.Context, log logger.Logger, declared DeclaredPool) bool
	// InvalidDiff returns the first immutable field that differs from the declaration, or ""
	InvalidDiff(declared DeclaredPool) string
	// Deletable reports whether the pool may be deleted through the reconciler
	Deletable() bool

	// Payload is the full wire representation
	Payload() map[string]interface{}
	// UpdatePayload is the wire representation without immutable fields and empty collections
	UpdatePayload() map[string]interface{}

	isPool()
}

// Common holds the attributes shared by both pool variants
type Common struct {
	ID          string
	Cluster     string
	ClusterType ClusterType
	// CCS marks clusters running in a customer cloud subscription
	CCS      bool
	Replicas *int
	Taints   []Taint
	Labels   map[string]string
}

func (c *Common) GetID() string               { return c.ID }
func (c *Common) GetCluster() string          { return c.Cluster }
func (c *Common) GetClusterType() ClusterType { return c.ClusterType }

func (c *Common) validate(hasAutoscaling, requireScaling bool) error {
	if c.ID == "" {
		return newValidationError("id", "is required")
	}
	if c.Cluster == "" {
		return newValidationError("cluster", "is required")
	}
	if c.Replicas != nil && hasAutoscaling {
		return newValidationError("autoscaling", "autoscaling and replicas are mutually exclusive")
	}
	if requireScaling && c.Replicas == nil && !hasAutoscaling {
		return newValidationError("replicas", "one of replicas or autoscaling must be set")
	}
	if c.Replicas != nil && *c.Replicas < 0 {
		return newValidationError("replicas", "must be >= 0, got %d", *c.Replicas)
	}
	return nil
}

// commonHasDiff compares the attributes every variant shares and logs the
// new-nodes-only warning for label and taint changes.
func (c *Common) commonHasDiff(ctx context.Context, log logger.Logger, kind string, declared DeclaredPool) bool {
	taintsDiffer := !taintsEqual(c.Taints, declared.Taints)
	labelsDiffer := !labelsEqual(c.Labels, declared.Labels)
	if (taintsDiffer || labelsDiffer) && log != nil {
		ctx = logger.WithPoolID(logger.WithCluster(ctx, c.Cluster), c.ID)
		log.Warnf(ctx, "updating labels or taints for %s %s will only be applied to new Nodes", kind, declared.ID)
	}
	return !intPtrEqual(c.Replicas, declared.Replicas) || taintsDiffer || labelsDiffer
}

func (c *Common) commonPayload(into map[string]interface{}, dropEmpty bool) {
	into["id"] = c.ID
	if c.Replicas != nil {
		into["replicas"] = *c.Replicas
	}
	if len(c.Taints) > 0 || !dropEmpty {
		into["taints"] = taintsPayload(c.Taints)
	}
	if len(c.Labels) > 0 || !dropEmpty {
		into["labels"] = copyLabels(c.Labels)
	}
}

func taintsPayload(taints []Taint) []interface{} {
	out := make([]interface{}, 0, len(taints))
	for _, t := range taints {
		out = append(out, map[string]interface{}{
			"key":    t.Key,
			"value":  t.Value,
			"effect": t.Effect,
		})
	}
	return out
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// taintsEqual compares ordered taint lists; nil and empty are equal
func taintsEqual(a, b []Taint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// labelsEqual compares label maps; nil and empty are equal
func labelsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func autoscalingHasDiff(current AutoscalingPolicy, declared *DeclaredAutoscale) bool {
	if current == nil && declared == nil {
		return false
	}
	if current == nil || declared == nil {
		return true
	}
	return current.HasDiff(*declared)
}
