// Package utils provides general-purpose utility functions.
package utils

import (
	"fmt"
	"path/filepath"
)

// ResolvePath resolves refPath against baseDir. Absolute paths are only
// cleaned; relative paths are joined to the absolute form of baseDir.
//
// Example:
//
//	path, err := ResolvePath("/etc/reconciler", "clusters")
//	// path = "/etc/reconciler/clusters"
//
//	path, err := ResolvePath("/etc/reconciler", "../clusters")
//	// path = "/etc/clusters"
func ResolvePath(baseDir, refPath string) (string, error) {
	if refPath == "" {
		return "", fmt.Errorf("path is empty")
	}
	if filepath.IsAbs(refPath) {
		return filepath.Clean(refPath), nil
	}
	baseAbs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	return filepath.Join(baseAbs, refPath), nil
}
