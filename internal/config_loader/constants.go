package config_loader

import "time"

// Supported configuration document identity
const (
	APIVersionV1Alpha1 = "machinepools.hyperfleet.io/v1alpha1"
	ExpectedKind       = "ReconcilerConfig"
)

// SupportedAPIVersions lists every apiVersion Load accepts
var SupportedAPIVersions = []string{APIVersionV1Alpha1}

// EnvConfigPath names the config file when no --config flag is given
const EnvConfigPath = "MPR_CONFIG"

// Defaults applied to optional settings
const (
	DefaultIntegration    = "ocm-machine-pools"
	DefaultServeInterval  = 10 * time.Minute
	DefaultMetricsPort    = 9090
	DefaultOCMEnvironment = "production"
)

// Field path constants for configuration structure.
// They are used to build validation error paths.

// Top-level field names
const (
	FieldSpec       = "spec"
	FieldMetadata   = "metadata"
	FieldAPIVersion = "apiVersion"
	FieldKind       = "kind"
	FieldName       = "name"
)

// Spec section field names
const (
	FieldIntegration     = "integration"
	FieldDesiredState    = "desiredState"
	FieldClusterSelector = "clusterSelector"
	FieldOCM             = "ocm"
	FieldEnvironments    = "environments"
	FieldEvents          = "events"
	FieldMetrics         = "metrics"
	FieldServe           = "serve"
	FieldFetch           = "fetch"
)

// Nested field names
const (
	FieldPath     = "path"
	FieldTimeout  = "timeout"
	FieldInterval = "interval"
	FieldSinkURL  = "sinkUrl"
	FieldPort     = "port"
)
