// Package ocm_client talks to the OCM clusters_mgmt API: it resolves cluster
// ids and lists, creates, updates and deletes machine pools and node pools.
package ocm_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
	"github.com/openshift-hyperfleet/machinepool-reconciler/pkg/logger"
	pkgotel "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/otel"
	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/flowcontrol"
)

// HTTPClient implements Client over HTTP JSON
type HTTPClient struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    flowcontrol.RateLimiter
	log        logger.Logger

	clusterIDsMu sync.RWMutex
	clusterIDs   map[string]string
	clusterIDsSF singleflight.Group
}

var _ Client = (*HTTPClient)(nil)

// NewClient creates an OCM client. Zero values in config are replaced by the package defaults.
func NewClient(config ClientConfig, log logger.Logger) (*HTTPClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("OCM base URL is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = DefaultRetryAttempts
	}
	backoff, err := ParseBackoffStrategy(string(config.RetryBackoff))
	if err != nil {
		return nil, err
	}
	config.RetryBackoff = backoff
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultMaxDelay
	}
	if config.QPS <= 0 {
		config.QPS = DefaultQPS
	}
	if config.Burst <= 0 {
		config.Burst = DefaultBurst
	}
	if config.UserAgent == "" {
		config.UserAgent = "machinepool-reconciler"
	}

	transport := config.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout, Transport: transport},
		limiter:    flowcontrol.NewTokenBucketRateLimiter(config.QPS, config.Burst),
		log:        log,
		clusterIDs: map[string]string{},
	}, nil
}

// BaseURL returns the configured OCM URL
func (c *HTTPClient) BaseURL() string {
	return c.config.BaseURL
}

// Do sends req, retrying network failures, 429, 408/504 and 5xx responses
// with the configured backoff. A non-2xx final response is returned as
// *apperrors.APIError.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	backoff := c.backoff()

	var lastErr error
	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.doOnce(ctx, req)
		if err == nil && !resp.IsSuccess() {
			err = newAPIError(req, resp)
		}
		if err == nil {
			resp.Attempts = attempt
			resp.Duration = time.Since(start)
			return resp, nil
		}

		lastErr = err
		if apiErr, ok := apperrors.IsAPIError(err); ok {
			apiErr.Attempts = attempt
		}
		if !apperrors.IsRetryable(err) || attempt == c.config.RetryAttempts {
			break
		}

		delay := c.nextDelay(&backoff, attempt)
		c.log.Debugf(ctx, "OCM request %s %s failed (attempt %d/%d), retrying in %s: %v",
			req.Method, req.URL, attempt, c.config.RetryAttempts, delay, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

func (c *HTTPClient) doOnce(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	pkgotel.InjectTraceContextIntoHeader(ctx, httpReq.Header)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

func (c *HTTPClient) backoff() wait.Backoff {
	b := wait.Backoff{
		Duration: c.config.BaseDelay,
		Factor:   2.0,
		Jitter:   0.1,
		Steps:    c.config.RetryAttempts,
		Cap:      c.config.MaxDelay,
	}
	if c.config.RetryBackoff == BackoffConstant {
		b.Factor = 1.0
	}
	return b
}

func (c *HTTPClient) nextDelay(b *wait.Backoff, attempt int) time.Duration {
	if c.config.RetryBackoff == BackoffLinear {
		d := c.config.BaseDelay * time.Duration(attempt)
		if d > c.config.MaxDelay {
			d = c.config.MaxDelay
		}
		return d
	}
	return b.Step()
}

// ocmErrorBody is the error document returned by OCM
type ocmErrorBody struct {
	Kind   string `json:"kind"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func newAPIError(req *Request, resp *Response) *apperrors.APIError {
	apiErr := &apperrors.APIError{
		Method:       req.Method,
		URL:          req.URL,
		StatusCode:   resp.StatusCode,
		Status:       resp.Status,
		ResponseBody: resp.Body,
	}
	var body ocmErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Reason = body.Reason
	}
	return apiErr
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

// Post performs a POST request
func (c *HTTPClient) Post(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, URL: url, Body: body})
}

// Patch performs a PATCH request
func (c *HTTPClient) Patch(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, URL: url, Body: body})
}

// Delete performs a DELETE request
func (c *HTTPClient) Delete(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, URL: url})
}
