package dev

// ValidationResult contains the result of config validation
type ValidationResult struct {
	// Valid indicates overall validation success
	Valid bool `json:"valid"`
	// Errors contains validation errors
	Errors []ValidationIssue `json:"errors"`
	// Warnings contains validation warnings
	Warnings []ValidationIssue `json:"warnings"`
	// Details contains category-specific validation results
	Details *ValidationDetails `json:"details,omitempty"`
}

// ValidationIssue represents a single validation error or warning
type ValidationIssue struct {
	// Path is the location of the issue, e.g. "spec.ocm.environments[0].url"
	// or "clusters/prod.yaml:osd-prod.machinePools[1]"
	Path string `json:"path"`
	// Message describes the issue
	Message string `json:"message"`
	// Type is the category the issue belongs to
	Type IssueType `json:"type"`
}

// IssueType names a validation category
type IssueType string

const (
	IssueSchema       IssueType = "schema"
	IssueEnvironment  IssueType = "environment"
	IssueSelector     IssueType = "selector"
	IssueDesiredState IssueType = "desired_state"
)

// ValidationDetails contains detailed validation results by category
type ValidationDetails struct {
	Schema       ValidationCategory `json:"schema"`
	Environments ValidationCategory `json:"environments"`
	Selector     ValidationCategory `json:"selector"`
	DesiredState ValidationCategory `json:"desiredState"`
}

// ValidationCategory represents validation results for a specific category
type ValidationCategory struct {
	Passed bool              `json:"passed"`
	Count  int               `json:"count"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

func (d *ValidationDetails) category(t IssueType) *ValidationCategory {
	switch t {
	case IssueEnvironment:
		return &d.Environments
	case IssueSelector:
		return &d.Selector
	case IssueDesiredState:
		return &d.DesiredState
	default:
		return &d.Schema
	}
}
