package dryrun

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DryrunResponsesFile is the top-level structure of an offline OCM responses file.
type DryrunResponsesFile struct {
	Responses []DryrunEndpoint `json:"responses" yaml:"responses"`
}

// DryrunEndpoint defines a URL pattern matcher and its sequential responses.
type DryrunEndpoint struct {
	Match     DryrunMatch      `json:"match" yaml:"match"`
	Responses []DryrunResponse `json:"responses" yaml:"responses"`
}

// DryrunMatch defines the HTTP method and URL pattern to match against.
type DryrunMatch struct {
	Method     string `json:"method" yaml:"method"`         // HTTP method or "*" for any
	URLPattern string `json:"urlPattern" yaml:"urlPattern"` // Go regexp
}

// DryrunResponse defines a single canned HTTP response.
type DryrunResponse struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       interface{}       `json:"body,omitempty" yaml:"body,omitempty"`
}

// LoadDryrunResponses reads a responses file. Files ending in .yaml or .yml
// are decoded as YAML, anything else as JSON.
func LoadDryrunResponses(path string) (*DryrunResponsesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dryrun responses file %q: %w", path, err)
	}

	var mrf DryrunResponsesFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &mrf)
	default:
		err = json.Unmarshal(data, &mrf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dryrun responses file %q: %w", path, err)
	}

	for i, ep := range mrf.Responses {
		if len(ep.Responses) == 0 {
			return nil, fmt.Errorf("dryrun responses file %q: endpoint %d has no responses defined", path, i)
		}
		if ep.Match.URLPattern == "" {
			return nil, fmt.Errorf("dryrun responses file %q: endpoint %d has empty urlPattern", path, i)
		}
		if _, err := regexp.Compile(ep.Match.URLPattern); err != nil {
			return nil, fmt.Errorf("dryrun responses file %q: endpoint %d: invalid urlPattern %q: %w", path, i, ep.Match.URLPattern, err)
		}
	}

	return &mrf, nil
}
