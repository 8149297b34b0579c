package config_loader

import (
	"fmt"
	"os"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/ocm_client"
)

// IntegrationName returns the configured integration name or the default
func (c *ReconcilerConfig) IntegrationName() string {
	if c.Spec.Integration == "" {
		return DefaultIntegration
	}
	return c.Spec.Integration
}

// ServeInterval parses spec.serve.interval, defaulting to DefaultServeInterval
func (c *ReconcilerConfig) ServeInterval() (time.Duration, error) {
	if c.Spec.Serve.Interval == "" {
		return DefaultServeInterval, nil
	}
	d, err := time.ParseDuration(c.Spec.Serve.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid serve interval %q: %w", c.Spec.Serve.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("serve interval must be positive, got %s", d)
	}
	return d, nil
}

// MetricsPort returns spec.metrics.port or the default
func (c *ReconcilerConfig) MetricsPort() int {
	if c.Spec.Metrics.Port == 0 {
		return DefaultMetricsPort
	}
	return c.Spec.Metrics.Port
}

// Environment returns the OCM environment with the given name, or nil
func (c *ReconcilerConfig) Environment(name string) *OCMEnvironment {
	for i := range c.Spec.OCM.Environments {
		if c.Spec.OCM.Environments[i].Name == name {
			return &c.Spec.OCM.Environments[i]
		}
	}
	return nil
}

// EnvironmentNames returns the configured environment names in declaration order
func (c *ReconcilerConfig) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Spec.OCM.Environments))
	for _, env := range c.Spec.OCM.Environments {
		names = append(names, env.Name)
	}
	return names
}

// ParseTimeout parses the timeout string to time.Duration.
// Returns 0 if timeout is empty, so the client default applies.
func (e *OCMEnvironment) ParseTimeout() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(e.Timeout)
}

// Token reads the bearer token from the variable named by TokenEnv
func (e *OCMEnvironment) Token() string {
	if e.TokenEnv == "" {
		return ""
	}
	return os.Getenv(e.TokenEnv)
}

// ClientConfig converts the environment into OCM client settings
func (e *OCMEnvironment) ClientConfig() (ocm_client.ClientConfig, error) {
	timeout, err := e.ParseTimeout()
	if err != nil {
		return ocm_client.ClientConfig{}, fmt.Errorf("environment %s: invalid timeout %q: %w", e.Name, e.Timeout, err)
	}
	return ocm_client.ClientConfig{
		BaseURL:       e.URL,
		Token:         e.Token(),
		Timeout:       timeout,
		RetryAttempts: e.RetryAttempts,
		RetryBackoff:  ocm_client.BackoffStrategy(e.RetryBackoff),
		QPS:           e.QPS,
		Burst:         e.Burst,
	}, nil
}
