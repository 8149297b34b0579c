package ocm_client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openshift-hyperfleet/machinepool-reconciler/internal/machinepool"
)

// BackoffStrategy selects how the delay between retries grows
type BackoffStrategy string

const (
	BackoffExponential BackoffStrategy = "exponential"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffConstant    BackoffStrategy = "constant"
)

// Defaults applied by NewClient
const (
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = BackoffExponential
	DefaultBaseDelay     = 500 * time.Millisecond
	DefaultMaxDelay      = 10 * time.Second
	DefaultQPS           = 10
	DefaultBurst         = 20
	// DefaultPageSize is the page size used when listing pools
	DefaultPageSize = 100
)

const clustersPath = "/api/clusters_mgmt/v1/clusters"

// NodePoolDesiredKeys are the node pool attributes kept from OCM listings;
// everything else OCM returns (status, href, version...) is dropped.
var NodePoolDesiredKeys = []string{
	"id", "instance_type", "replicas", "autoscaling", "labels", "taints", "aws_node_pool", "subnet", "version",
}

// Client is the OCM clusters_mgmt client for one OCM environment
type Client interface {
	machinepool.Client

	// GetClusterID resolves a cluster name to its OCM id
	GetClusterID(ctx context.Context, clusterName string) (string, error)
	// GetMachinePools lists all machine pools of a cluster
	GetMachinePools(ctx context.Context, clusterName string) ([]map[string]interface{}, error)
	// GetNodePools lists all node pools of a cluster, filtered to NodePoolDesiredKeys
	GetNodePools(ctx context.Context, clusterName string) ([]map[string]interface{}, error)
}

// ClientConfig configures an HTTP Client
type ClientConfig struct {
	// BaseURL is the OCM API URL, e.g. https://api.openshift.com
	BaseURL string
	// Token is sent as a bearer token when set
	Token         string
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  BackoffStrategy
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	// QPS and Burst configure the client-side token bucket
	QPS   float32
	Burst int
	// Transport replaces the default transport, e.g. with the offline dry-run transport
	Transport http.RoundTripper
	// UserAgent is sent on every request
	UserAgent string
}

// Request is a single OCM API request
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is an OCM API response
type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	// Attempts is the number of attempts it took to get this response
	Attempts int
	Duration time.Duration
}

// IsSuccess reports a 2xx status
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ParseBackoffStrategy validates a configured backoff strategy, "" meaning the default
func ParseBackoffStrategy(s string) (BackoffStrategy, error) {
	switch BackoffStrategy(s) {
	case "":
		return DefaultRetryBackoff, nil
	case BackoffExponential, BackoffLinear, BackoffConstant:
		return BackoffStrategy(s), nil
	default:
		return "", fmt.Errorf("invalid retry backoff %q (supported: exponential, linear, constant)", s)
	}
}
