package machinepool

import (
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation"
)

var validTaintEffects = sets.New(
	string(corev1.TaintEffectNoSchedule),
	string(corev1.TaintEffectPreferNoSchedule),
	string(corev1.TaintEffectNoExecute),
)

// validateDeclaredMetadata checks declared taints and labels against the
// Kubernetes rules OCM enforces, so a bad declaration fails at plan time
// instead of on the API call.
func validateDeclaredMetadata(taints []Taint, labels map[string]string) error {
	for i, t := range taints {
		field := fmt.Sprintf("taints[%d]", i)
		if errs := validation.IsQualifiedName(t.Key); len(errs) > 0 {
			return newValidationError(field+".key", "%q: %s", t.Key, strings.Join(errs, "; "))
		}
		if errs := validation.IsValidLabelValue(t.Value); len(errs) > 0 {
			return newValidationError(field+".value", "%q: %s", t.Value, strings.Join(errs, "; "))
		}
		if !validTaintEffects.Has(t.Effect) {
			return newValidationError(field+".effect", "%q is not one of %s", t.Effect, strings.Join(sets.List(validTaintEffects), ", "))
		}
	}
	for k, v := range labels {
		if errs := validation.IsQualifiedName(k); len(errs) > 0 {
			return newValidationError("labels", "key %q: %s", k, strings.Join(errs, "; "))
		}
		if errs := validation.IsValidLabelValue(v); len(errs) > 0 {
			return newValidationError("labels", "value %q for key %q: %s", v, k, strings.Join(errs, "; "))
		}
	}
	return nil
}
