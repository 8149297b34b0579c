package dev

import (
	"fmt"
	"strings"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/config_loader"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/desired_state"
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/util/sets"
)

// ValidateOptions tunes ValidateConfig
type ValidateOptions struct {
	// Strict treats warnings as errors
	Strict bool
	// Flags carries the config override flags of the calling command
	Flags *pflag.FlagSet
}

// ValidateConfig validates a reconciler configuration file and, when the
// configuration itself is valid, the desired state it points at. Nothing is
// sent to OCM.
func ValidateConfig(configPath string, opts ValidateOptions) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:    true,
		Errors:   []ValidationIssue{},
		Warnings: []ValidationIssue{},
		Details: &ValidationDetails{
			Schema:       ValidationCategory{Passed: true},
			Environments: ValidationCategory{Passed: true},
			Selector:     ValidationCategory{Passed: true},
			DesiredState: ValidationCategory{Passed: true},
		},
	}

	config, err := config_loader.Load(configPath, opts.Flags)
	if err != nil {
		categorizeLoadError(err, result)
		result.Valid = false
		return result, nil
	}

	result.Details.Schema.Count = 1
	checkEnvironments(config, result)
	checkDesiredState(config, result)

	if opts.Strict && len(result.Warnings) > 0 {
		for _, warn := range result.Warnings {
			result.addError(ValidationIssue{
				Path:    warn.Path,
				Message: fmt.Sprintf("[strict] %s", warn.Message),
				Type:    warn.Type,
			})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

func (r *ValidationResult) addError(issue ValidationIssue) {
	r.Errors = append(r.Errors, issue)
	cat := r.Details.category(issue.Type)
	cat.Passed = false
	cat.Issues = append(cat.Issues, issue)
}

func (r *ValidationResult) addWarning(issue ValidationIssue) {
	r.Warnings = append(r.Warnings, issue)
}

// categorizeLoadError splits a config load error into issues
func categorizeLoadError(err error, result *ValidationResult) {
	errStr := err.Error()

	if !strings.Contains(errStr, "validation failed with") {
		result.addError(ValidationIssue{
			Path:    "config",
			Message: errStr,
			Type:    issueTypeFor("", errStr),
		})
		return
	}

	for _, line := range strings.Split(errStr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "validation failed") {
			continue
		}
		line = strings.TrimPrefix(line, "- ")
		result.addError(parseValidationLine(line))
	}
}

// parseValidationLine parses a "path: message" line into a ValidationIssue
func parseValidationLine(line string) ValidationIssue {
	issue := ValidationIssue{Path: "config", Message: line}
	if parts := strings.SplitN(line, ": ", 2); len(parts) == 2 {
		issue.Path = parts[0]
		issue.Message = parts[1]
	}
	issue.Type = issueTypeFor(issue.Path, issue.Message)
	return issue
}

func issueTypeFor(path, message string) IssueType {
	text := path + " " + message
	switch {
	case strings.Contains(text, "spec."+config_loader.FieldOCM):
		return IssueEnvironment
	case strings.Contains(text, config_loader.FieldClusterSelector):
		return IssueSelector
	case strings.Contains(text, config_loader.FieldDesiredState):
		return IssueDesiredState
	default:
		return IssueSchema
	}
}

func checkEnvironments(config *config_loader.ReconcilerConfig, result *ValidationResult) {
	result.Details.Environments.Count = len(config.Spec.OCM.Environments)
	for i, env := range config.Spec.OCM.Environments {
		if env.TokenEnv != "" && env.Token() == "" {
			result.addWarning(ValidationIssue{
				Path:    fmt.Sprintf("spec.ocm.environments[%d].tokenEnv", i),
				Message: fmt.Sprintf("environment variable %s is not set, requests to %s will be unauthenticated", env.TokenEnv, env.Name),
				Type:    IssueEnvironment,
			})
		}
	}
}

// checkDesiredState loads the declared clusters and runs the checks a
// reconciliation would fail on, without contacting OCM
func checkDesiredState(config *config_loader.ReconcilerConfig, result *ValidationResult) {
	path := config.Spec.DesiredState.Path
	clusters, err := desired_state.Load(path)
	if err != nil {
		result.addError(ValidationIssue{Path: "spec.desiredState.path", Message: err.Error(), Type: IssueDesiredState})
		return
	}
	result.Details.DesiredState.Count = len(clusters)

	selector, err := desired_state.NewSelector(config.Spec.ClusterSelector)
	if err != nil {
		result.addError(ValidationIssue{Path: "spec.clusterSelector", Message: err.Error(), Type: IssueSelector})
		return
	}

	integration := config.IntegrationName()
	var managed int
	for _, c := range clusters {
		if !desired_state.IntegrationEnabled(integration, c) || !desired_state.Compatible(c) {
			continue
		}
		matched, err := selector.Matches(c)
		if err != nil {
			result.addError(ValidationIssue{Path: c.Name, Message: err.Error(), Type: IssueSelector})
			continue
		}
		if !matched {
			continue
		}
		managed++
		checkCluster(config, c, result)
	}
	result.Details.Selector.Count = managed

	if managed == 0 && len(clusters) > 0 {
		result.addWarning(ValidationIssue{
			Path:    "spec.clusterSelector",
			Message: fmt.Sprintf("none of the %d declared clusters is managed by integration %s", len(clusters), integration),
			Type:    IssueSelector,
		})
	}
}

func checkCluster(config *config_loader.ReconcilerConfig, c desired_state.Cluster, result *ValidationResult) {
	env := c.Environment()
	if env == "" {
		env = config_loader.DefaultOCMEnvironment
	}
	if config.Environment(env) == nil {
		result.addError(ValidationIssue{
			Path:    c.Name + ".ocm.environment",
			Message: fmt.Sprintf("unknown OCM environment %q (configured: %s)", env, strings.Join(config.EnvironmentNames(), ", ")),
			Type:    IssueEnvironment,
		})
	}

	info, err := desired_state.ClusterInfo(c)
	if err != nil {
		result.addError(ValidationIssue{Path: c.Name + ".spec", Message: err.Error(), Type: IssueDesiredState})
		return
	}

	if len(c.MachinePools) == 0 {
		result.addWarning(ValidationIssue{
			Path:    c.Name + ".machinePools",
			Message: "empty machinePools list: deleting every pool is refused",
			Type:    IssueDesiredState,
		})
		return
	}

	ids := sets.New[string]()
	for i, declared := range c.MachinePools {
		path := fmt.Sprintf("%s.machinePools[%d]", c.Name, i)
		if ids.Has(declared.ID) {
			result.addError(ValidationIssue{Path: path, Message: fmt.Sprintf("duplicate pool id %s", declared.ID), Type: IssueDesiredState})
			continue
		}
		ids.Insert(declared.ID)
		if _, err := machinepool.FromDeclared(declared, info); err != nil {
			result.addError(ValidationIssue{Path: path, Message: err.Error(), Type: IssueDesiredState})
		}
	}
}
