package dev

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadEnvFile reads KEY=VALUE assignments from a dotenv file, typically the
// OCM token variables referenced by spec.ocm.environments[].tokenEnv.
//
// Blank lines and # comments are skipped and an "export " prefix is allowed.
// Double quoted values are unquoted with Go escape rules, single quoted
// values are taken literally.
func LoadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	vars := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			return nil, fmt.Errorf("invalid env file format at line %d: %s", n, line)
		}
		if key = strings.TrimSpace(key); key == "" {
			return nil, fmt.Errorf("empty variable name at line %d", n)
		}

		value, err = unquoteEnvValue(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s at line %d: %w", key, n, err)
		}
		vars[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}
	return vars, nil
}

func unquoteEnvValue(v string) (string, error) {
	if len(v) < 2 || v[0] != v[len(v)-1] {
		return v, nil
	}
	switch v[0] {
	case '"':
		return strconv.Unquote(v)
	case '\'':
		return v[1 : len(v)-1], nil
	}
	return v, nil
}

// ApplyEnvVars exports every entry of envVars into the process environment
func ApplyEnvVars(envVars map[string]string) error {
	for key, value := range envVars {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}
	return nil
}
