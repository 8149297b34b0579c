package ocm_client

import (
	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// ClientMap resolves the OCM client of a cluster through the OCM environment
// the cluster is declared in. Clusters must be registered with Assign.
type ClientMap struct {
	environments map[string]Client
	clusters     map[string]string
}

// NewClientMap creates a resolver over clients keyed by OCM environment name
func NewClientMap(environments map[string]Client) *ClientMap {
	envs := make(map[string]Client, len(environments))
	for name, c := range environments {
		envs[name] = c
	}
	return &ClientMap{environments: envs, clusters: map[string]string{}}
}

// Assign records which OCM environment a cluster belongs to
func (m *ClientMap) Assign(cluster, environment string) {
	m.clusters[cluster] = environment
}

// Environment returns the environment a cluster was assigned to
func (m *ClientMap) Environment(cluster string) (string, bool) {
	env, ok := m.clusters[cluster]
	return env, ok
}

// Client returns the full OCM client of a cluster
func (m *ClientMap) Client(cluster string) (Client, bool) {
	env, ok := m.clusters[cluster]
	if !ok {
		return nil, false
	}
	c, ok := m.environments[env]
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

// ClientFor returns the pool mutation client of a cluster
func (m *ClientMap) ClientFor(cluster string) (machinepool.Client, bool) {
	c, ok := m.Client(cluster)
	if !ok {
		return nil, false
	}
	return c, true
}

// HasEnvironment reports whether a client is configured for the environment
func (m *ClientMap) HasEnvironment(environment string) bool {
	_, ok := m.environments[environment]
	return ok
}
