package planner

import (
	"errors"
	"fmt"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// ErrorKind classifies a planning error
type ErrorKind string

const (
	KindValidationError           ErrorKind = "ValidationError"
	KindImmutableFieldViolation   ErrorKind = "ImmutableFieldViolation"
	KindDeletionPolicyViolation   ErrorKind = "DeletionPolicyViolation"
	KindUnclassifiableClusterType ErrorKind = "UnclassifiableClusterType"
	KindSelectorError             ErrorKind = "SelectorError"
)

// InvalidUpdateError is a business-rule violation found while planning.
// It is reported to the operator and the offending change is not applied.
type InvalidUpdateError struct {
	Kind    ErrorKind
	Cluster string
	PoolID  string
	// Field is the immutable field for ImmutableFieldViolation
	Field   string
	Current string
	Desired string
	Message string
	// Err is the underlying cause, if any
	Err error
}

func (e *InvalidUpdateError) Error() string {
	return e.Message
}

func (e *InvalidUpdateError) Unwrap() error {
	return e.Err
}

// Expected marks planning errors as operator-facing, so no stack trace is logged
func (e *InvalidUpdateError) Expected() bool { return true }

// KindOf returns the kind of a planning error, or "" when err is not one
func KindOf(err error) ErrorKind {
	var iue *InvalidUpdateError
	if errors.As(err, &iue) {
		return iue.Kind
	}
	return ""
}

func newImmutableFieldViolation(field string, current machinepool.Pool, desired machinepool.DeclaredPool) *InvalidUpdateError {
	currentJSON := poolJSON(current)
	desiredJSON := desired.String()
	return &InvalidUpdateError{
		Kind:    KindImmutableFieldViolation,
		Cluster: current.GetCluster(),
		PoolID:  current.GetID(),
		Field:   field,
		Current: currentJSON,
		Desired: desiredJSON,
		Message: fmt.Sprintf("can not update %s for existing %s %s on cluster %s, CURRENT: %s, DESIRED: %s",
			field, kindLabel(current), current.GetID(), current.GetCluster(), currentJSON, desiredJSON),
	}
}

func newDeleteAllViolation(current machinepool.Pool) *InvalidUpdateError {
	return &InvalidUpdateError{
		Kind:    KindDeletionPolicyViolation,
		Cluster: current.GetCluster(),
		PoolID:  current.GetID(),
		Current: poolJSON(current),
		Message: fmt.Sprintf("can not delete all machine pools for cluster %s", current.GetCluster()),
	}
}

func newNotDeletableViolation(current machinepool.Pool) *InvalidUpdateError {
	return &InvalidUpdateError{
		Kind:    KindDeletionPolicyViolation,
		Cluster: current.GetCluster(),
		PoolID:  current.GetID(),
		Current: poolJSON(current),
		Message: fmt.Sprintf("can not delete machine pool %s for cluster %s", current.GetID(), current.GetCluster()),
	}
}

func newValidationViolation(cluster string, declared machinepool.DeclaredPool, err error) *InvalidUpdateError {
	return &InvalidUpdateError{
		Kind:    KindValidationError,
		Cluster: cluster,
		PoolID:  declared.ID,
		Desired: declared.String(),
		Message: err.Error(),
		Err:     err,
	}
}

// NewUnclassifiableClusterError reports a cluster whose metadata maps to no known cluster type
func NewUnclassifiableClusterError(cluster string, err error) *InvalidUpdateError {
	return &InvalidUpdateError{
		Kind:    KindUnclassifiableClusterType,
		Cluster: cluster,
		Message: err.Error(),
		Err:     err,
	}
}

// NewSelectorError reports a cluster the cluster selector could not be evaluated for
func NewSelectorError(cluster string, err error) *InvalidUpdateError {
	return &InvalidUpdateError{
		Kind:    KindSelectorError,
		Cluster: cluster,
		Message: err.Error(),
		Err:     err,
	}
}

func kindLabel(p machinepool.Pool) string {
	if p.Kind() == "NodePool" {
		return "node pool"
	}
	return "machine pool"
}
