package config_loader

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/desired_state"
)

// -----------------------------------------------------------------------------
// Validation Errors
// -----------------------------------------------------------------------------

// ValidationError represents a validation error with context
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors holds multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range ve.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  - %s", len(ve.Errors), strings.Join(msgs, "\n  - "))
}

func (ve *ValidationErrors) Add(path, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Path: path, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// -----------------------------------------------------------------------------
// Validator
// -----------------------------------------------------------------------------

// Validator performs semantic validation on ReconcilerConfig.
// Struct tags are checked first, then durations and the cluster selector.
type Validator struct {
	config *ReconcilerConfig
	errors *ValidationErrors
	tags   *validator.Validate
}

// newValidator creates a new Validator for the given config
func newValidator(config *ReconcilerConfig) *Validator {
	tags := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml names so paths match what users write in the file
	tags.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		config: config,
		errors: &ValidationErrors{},
		tags:   tags,
	}
}

// Validate performs all semantic validations and returns any errors.
func (v *Validator) Validate() error {
	if v.config == nil {
		return fmt.Errorf("config is nil")
	}

	v.validateStructTags()
	v.validateDurations()
	v.validateClusterSelector()

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateStructTags() {
	err := v.tags.Struct(v.config)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.errors.Add("config", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		v.errors.Add(fieldPath(fe.Namespace()), tagMessage(fe))
	}
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	case "oneof":
		return fmt.Sprintf("%v must be one of [%s]", fe.Value(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s must be unique", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%v violates %s=%s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func (v *Validator) validateDurations() {
	if _, err := v.config.ServeInterval(); err != nil {
		v.errors.Add(fmt.Sprintf("%s.%s.%s", FieldSpec, FieldServe, FieldInterval), err.Error())
	}
	for i := range v.config.Spec.OCM.Environments {
		env := &v.config.Spec.OCM.Environments[i]
		d, err := env.ParseTimeout()
		path := fmt.Sprintf("%s.%s.%s[%d].%s", FieldSpec, FieldOCM, FieldEnvironments, i, FieldTimeout)
		switch {
		case err != nil:
			v.errors.Add(path, fmt.Sprintf("invalid duration %q: %v", env.Timeout, err))
		case d < 0:
			v.errors.Add(path, fmt.Sprintf("must not be negative, got %s", d))
		}
	}
}

func (v *Validator) validateClusterSelector() {
	if v.config.Spec.ClusterSelector == "" {
		return
	}
	if _, err := desired_state.NewSelector(v.config.Spec.ClusterSelector); err != nil {
		v.errors.Add(fmt.Sprintf("%s.%s", FieldSpec, FieldClusterSelector), err.Error())
	}
}
