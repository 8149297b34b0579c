package ocm_client

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitchellh/copystructure"
)

// Call records a mutating call made on the MockClient
type Call struct {
	Method  string
	Cluster string
	Spec    map[string]interface{}
}

// MockClient implements Client for testing.
// Pool listings are served from MachinePools/NodePools keyed by cluster name;
// mutating calls are recorded and fail with the configured error.
type MockClient struct {
	mu sync.Mutex

	// ClusterIDs maps cluster name to id; unknown names resolve to "<name>-id"
	ClusterIDs   map[string]string
	MachinePools map[string][]map[string]interface{}
	NodePools    map[string][]map[string]interface{}

	// ListError is returned by GetMachinePools and GetNodePools
	ListError error
	// ListErrors overrides ListError per cluster name
	ListErrors map[string]error
	// MutateErrors maps a method name (e.g. "CreateMachinePool") to the error it returns
	MutateErrors map[string]error

	// Calls records all mutating calls made to this mock for verification
	Calls []Call
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock with no pools
func NewMockClient() *MockClient {
	return &MockClient{
		ClusterIDs:   map[string]string{},
		MachinePools: map[string][]map[string]interface{}{},
		NodePools:    map[string][]map[string]interface{}{},
		ListErrors:   map[string]error{},
		MutateErrors: map[string]error{},
	}
}

func (m *MockClient) GetClusterID(ctx context.Context, clusterName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ClusterIDs[clusterName]; ok {
		return id, nil
	}
	return fmt.Sprintf("%s-id", clusterName), nil
}

func (m *MockClient) GetMachinePools(ctx context.Context, clusterName string) ([]map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listError(clusterName); err != nil {
		return nil, err
	}
	return deepCopyItems(m.MachinePools[clusterName]), nil
}

func (m *MockClient) GetNodePools(ctx context.Context, clusterName string) ([]map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listError(clusterName); err != nil {
		return nil, err
	}
	items := make([]map[string]interface{}, 0, len(m.NodePools[clusterName]))
	for _, item := range deepCopyItems(m.NodePools[clusterName]) {
		items = append(items, filterKeys(item, NodePoolDesiredKeys))
	}
	return items, nil
}

func (m *MockClient) listError(clusterName string) error {
	if err, ok := m.ListErrors[clusterName]; ok {
		return err
	}
	return m.ListError
}

func (m *MockClient) CreateMachinePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return m.record("CreateMachinePool", clusterName, spec)
}

func (m *MockClient) UpdateMachinePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return m.record("UpdateMachinePool", clusterName, spec)
}

func (m *MockClient) DeleteMachinePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return m.record("DeleteMachinePool", clusterName, spec)
}

func (m *MockClient) CreateNodePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return m.record("CreateNodePool", clusterName, spec)
}

func (m *MockClient) UpdateNodePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return m.record("UpdateNodePool", clusterName, spec)
}

func (m *MockClient) DeleteNodePool(ctx context.Context, clusterName string, spec map[string]interface{}) error {
	return m.record("DeleteNodePool", clusterName, spec)
}

func (m *MockClient) record(method, clusterName string, spec map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, Call{Method: method, Cluster: clusterName, Spec: spec})
	return m.MutateErrors[method]
}

// CallMethods returns the method names of all recorded calls, in order
func (m *MockClient) CallMethods() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	methods := make([]string, 0, len(m.Calls))
	for _, c := range m.Calls {
		methods = append(methods, c.Method)
	}
	return methods
}

// Reset clears all recorded calls
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

func deepCopyItems(items []map[string]interface{}) []map[string]interface{} {
	if items == nil {
		return nil
	}
	copied, err := copystructure.Copy(items)
	if err != nil {
		return items
	}
	return copied.([]map[string]interface{})
}
