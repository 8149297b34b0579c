package config_loader

import (
	"fmt"
	"slices"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// -----------------------------------------------------------------------------
// SchemaValidator
// -----------------------------------------------------------------------------

// SchemaValidator performs structural validation on ReconcilerConfig.
// It runs before semantic validation and fails fast.
type SchemaValidator struct {
	config *ReconcilerConfig
}

// NewSchemaValidator creates a new SchemaValidator for the given config
func NewSchemaValidator(config *ReconcilerConfig) *SchemaValidator {
	return &SchemaValidator{config: config}
}

// ValidateStructure performs all structural validations.
// Returns error on first validation failure (fail-fast).
func (v *SchemaValidator) ValidateStructure() error {
	validators := []func() error{
		v.validateAPIVersionAndKind,
		v.validateMetadata,
		v.validateEnvironmentNames,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

// -----------------------------------------------------------------------------
// Core Structural Validators
// -----------------------------------------------------------------------------

func (v *SchemaValidator) validateAPIVersionAndKind() error {
	if v.config.APIVersion == "" {
		return fmt.Errorf("%s is required", FieldAPIVersion)
	}
	if !IsSupportedAPIVersion(v.config.APIVersion) {
		return fmt.Errorf("unsupported apiVersion %q (supported: %s)",
			v.config.APIVersion, strings.Join(SupportedAPIVersions, ", "))
	}
	if v.config.Kind == "" {
		return fmt.Errorf("%s is required", FieldKind)
	}
	if v.config.Kind != ExpectedKind {
		return fmt.Errorf("invalid kind %q (expected: %q)", v.config.Kind, ExpectedKind)
	}
	return nil
}

func (v *SchemaValidator) validateMetadata() error {
	if v.config.Metadata.Name == "" {
		return fmt.Errorf("%s.%s is required", FieldMetadata, FieldName)
	}
	return nil
}

// validateEnvironmentNames requires DNS-1123 labels, since environment
// names show up in metric labels and cluster files
func (v *SchemaValidator) validateEnvironmentNames() error {
	for i, env := range v.config.Spec.OCM.Environments {
		if env.Name == "" {
			continue
		}
		if errs := validation.IsDNS1123Label(env.Name); len(errs) > 0 {
			return fmt.Errorf("%s.%s.%s[%d].%s %q is invalid: %s",
				FieldSpec, FieldOCM, FieldEnvironments, i, FieldName, env.Name, strings.Join(errs, "; "))
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Public helpers
// -----------------------------------------------------------------------------

// IsSupportedAPIVersion checks if the given apiVersion is supported
func IsSupportedAPIVersion(apiVersion string) bool {
	return slices.Contains(SupportedAPIVersions, apiVersion)
}
