package desired_state

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Load reads clusters from a single YAML file or from every *.yaml / *.yml
// file of a directory (non-recursive, in lexical order). Unknown keys are
// rejected, cluster names must be DNS-1123 labels and a name may only be
// declared once across all files.
func Load(path string) ([]Cluster, error) {
	if path == "" {
		return nil, apperrors.DesiredStateError("desired state path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.DesiredStateError("failed to stat %q: %v", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = listYAMLFiles(path)
		if err != nil {
			return nil, err
		}
	}

	var clusters []Cluster
	seen := map[string]string{}
	for _, f := range files {
		loaded, err := loadFile(f)
		if err != nil {
			return nil, err
		}
		for _, c := range loaded {
			if c.Name == "" {
				return nil, apperrors.DesiredStateError("%s: cluster without name", f)
			}
			if errs := validation.IsDNS1123Label(c.Name); len(errs) > 0 {
				return nil, apperrors.DesiredStateError("%s: invalid cluster name %q: %s", f, c.Name, strings.Join(errs, "; "))
			}
			if prev, ok := seen[c.Name]; ok {
				return nil, apperrors.DesiredStateError("cluster %s declared in both %s and %s", c.Name, prev, f)
			}
			seen[c.Name] = f
			clusters = append(clusters, c)
		}
	}
	return clusters, nil
}

func listYAMLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.DesiredStateError("failed to read directory %q: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// loadFile decodes every document of a file; empty documents are skipped
func loadFile(path string) ([]Cluster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.DesiredStateError("failed to read %q: %v", path, err)
	}
	return Parse(data, path)
}

// Parse decodes desired-state YAML. name is used in error messages only.
func Parse(data []byte, name string) ([]Cluster, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var clusters []Cluster
	for {
		var doc File
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.DesiredStateError("failed to parse %s: %v", name, err)
		}
		clusters = append(clusters, doc.Clusters...)
	}
	return clusters, nil
}
