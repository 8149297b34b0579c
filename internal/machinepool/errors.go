package machinepool

import "fmt"

// ValidationError is returned by the validating constructors when a pool or
// autoscaling policy violates an invariant. It only affects the pool being built.
type ValidationError struct {
	Cluster string
	PoolID  string
	Field   string
	Message string
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	prefix := "invalid pool"
	if e.PoolID != "" {
		prefix = fmt.Sprintf("invalid pool %s", e.PoolID)
	}
	if e.Cluster != "" {
		prefix += fmt.Sprintf(" on cluster %s", e.Cluster)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Expected marks validation failures as operator-facing, not internal faults
func (e *ValidationError) Expected() bool { return true }

// withPool attaches pool identity to a validation error raised by a nested constructor
func withPool(err error, cluster, poolID string) error {
	if ve, ok := err.(*ValidationError); ok {
		ve.Cluster = cluster
		ve.PoolID = poolID
		return ve
	}
	return err
}
