package config_loader

// ReconcilerConfig represents the complete reconciler configuration structure
type ReconcilerConfig struct {
	APIVersion string         `yaml:"apiVersion" validate:"required"`
	Kind       string         `yaml:"kind" validate:"required"`
	Metadata   Metadata       `yaml:"metadata"`
	Spec       ReconcilerSpec `yaml:"spec"`
}

// Metadata contains the reconciler metadata
type Metadata struct {
	Name   string            `yaml:"name" validate:"required"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// ReconcilerSpec contains the reconciler specification
type ReconcilerSpec struct {
	// Integration is the name clusters opt out of with disable.integrations
	Integration  string             `yaml:"integration,omitempty"`
	DesiredState DesiredStateConfig `yaml:"desiredState"`
	// ClusterSelector is an optional CEL expression over
	// name, product, hypershift, ccs and environment
	ClusterSelector string        `yaml:"clusterSelector,omitempty"`
	OCM             OCMConfig     `yaml:"ocm"`
	Events          EventsConfig  `yaml:"events,omitempty"`
	Metrics         MetricsConfig `yaml:"metrics,omitempty"`
	Serve           ServeConfig   `yaml:"serve,omitempty"`
	Fetch           FetchConfig   `yaml:"fetch,omitempty"`
	DebugConfig     bool          `yaml:"debugConfig,omitempty"`
}

// DesiredStateConfig locates the declared cluster files
type DesiredStateConfig struct {
	// Path is a YAML file or a directory of YAML files
	Path string `yaml:"path" validate:"required"`
}

// OCMConfig lists the OCM environments clusters can reference
type OCMConfig struct {
	Environments []OCMEnvironment `yaml:"environments" validate:"required,min=1,unique=Name,dive"`
}

// OCMEnvironment contains the connection settings of one OCM environment
type OCMEnvironment struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
	// TokenEnv names the environment variable holding the bearer token
	TokenEnv      string  `yaml:"tokenEnv,omitempty"`
	Timeout       string  `yaml:"timeout,omitempty"`
	RetryAttempts int     `yaml:"retryAttempts,omitempty" validate:"gte=0"`
	RetryBackoff  string  `yaml:"retryBackoff,omitempty" validate:"omitempty,oneof=exponential linear constant"`
	QPS           float32 `yaml:"qps,omitempty" validate:"gte=0"`
	Burst         int     `yaml:"burst,omitempty" validate:"gte=0"`
}

// EventsConfig configures the CloudEvents audit sink
type EventsConfig struct {
	SinkURL string `yaml:"sinkUrl,omitempty" validate:"omitempty,url"`
	Source  string `yaml:"source,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Port int `yaml:"port,omitempty" validate:"gte=0,lte=65535"`
}

// ServeConfig configures the periodic reconcile loop
type ServeConfig struct {
	Interval string `yaml:"interval,omitempty"`
}

// FetchConfig tunes the current-state fetch
type FetchConfig struct {
	Concurrency int `yaml:"concurrency,omitempty" validate:"gte=0"`
}
