// Package dryrun serves OCM offline for dry runs and renders the outcome of a run.
package dryrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
)

// RequestRecord stores details of a request served by the Transport.
type RequestRecord struct {
	Method     string
	URL        string
	Body       []byte
	StatusCode int
	Response   []byte
}

// Transport is an http.RoundTripper that answers OCM requests from
// file-defined responses so a reconciliation can run fully offline.
// Requests are matched by HTTP method and URL regex; each endpoint returns
// its responses in order and repeats the last one. Every request is recorded.
//
// Unmatched requests get a default answer: cluster searches resolve the
// searched name to a cluster with the same id, pool listings are empty and
// mutations succeed.
type Transport struct {
	endpoints []compiledEndpoint
	mu        sync.Mutex
	Requests  []RequestRecord
}

var _ http.RoundTripper = (*Transport)(nil)

type compiledEndpoint struct {
	method  string
	pattern *regexp.Regexp
	resps   []DryrunResponse
	callIdx int
}

var clusterSearchName = regexp.MustCompile(`^name\s*=\s*'([^']*)'$`)

// NewTransport creates a Transport from a DryrunResponsesFile.
// A nil mrf serves default answers only.
func NewTransport(mrf *DryrunResponsesFile) (*Transport, error) {
	t := &Transport{
		Requests: make([]RequestRecord, 0),
	}
	if mrf == nil {
		return t, nil
	}

	for i, ep := range mrf.Responses {
		compiled, err := regexp.Compile(ep.Match.URLPattern)
		if err != nil {
			return nil, fmt.Errorf("endpoint %d: invalid urlPattern %q: %w", i, ep.Match.URLPattern, err)
		}
		t.endpoints = append(t.endpoints, compiledEndpoint{
			method:  strings.ToUpper(ep.Match.Method),
			pattern: compiled,
			resps:   ep.Responses,
		})
	}
	return t, nil
}

func (t *Transport) findEndpoint(method, url string) *compiledEndpoint {
	for i := range t.endpoints {
		ep := &t.endpoints[i]
		if ep.method != "*" && ep.method != method {
			continue
		}
		if ep.pattern.MatchString(url) {
			return ep
		}
	}
	return nil
}

func (t *Transport) nextResponse(ep *compiledEndpoint) DryrunResponse {
	idx := ep.callIdx
	if idx >= len(ep.resps) {
		idx = len(ep.resps) - 1
	}
	ep.callIdx++
	return ep.resps[idx]
}

// RoundTrip serves the request from the configured responses
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		reqBody = b
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	url := req.URL.String()
	statusCode, headers, respBody, err := t.respond(req, url, reqBody)
	if err != nil {
		return nil, err
	}

	t.Requests = append(t.Requests, RequestRecord{
		Method:     req.Method,
		URL:        url,
		Body:       reqBody,
		StatusCode: statusCode,
		Response:   respBody,
	})

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	for k, v := range headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode:    statusCode,
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(respBody)),
		ContentLength: int64(len(respBody)),
		Request:       req,
	}, nil
}

func (t *Transport) respond(req *http.Request, url string, reqBody []byte) (int, map[string]string, []byte, error) {
	ep := t.findEndpoint(req.Method, url)
	if ep == nil {
		status, body := defaultResponse(req, reqBody)
		return status, nil, body, nil
	}

	resp := t.nextResponse(ep)
	statusCode := resp.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	respBody := []byte("{}")
	if resp.Body != nil {
		b, err := json.Marshal(resp.Body)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to marshal dryrun response body: %w", err)
		}
		respBody = b
	}
	return statusCode, resp.Headers, respBody, nil
}

func defaultResponse(req *http.Request, reqBody []byte) (int, []byte) {
	switch req.Method {
	case http.MethodGet:
		if m := clusterSearchName.FindStringSubmatch(req.URL.Query().Get("search")); m != nil {
			body, _ := json.Marshal(map[string]interface{}{
				"kind":  "ClusterList",
				"page":  1,
				"size":  1,
				"total": 1,
				"items": []map[string]string{{"id": m[1], "name": m[1]}},
			})
			return http.StatusOK, body
		}
		return http.StatusOK, []byte(`{"page":1,"size":0,"total":0,"items":[]}`)
	case http.MethodPost:
		if len(reqBody) > 0 {
			return http.StatusCreated, reqBody
		}
		return http.StatusCreated, []byte("{}")
	case http.MethodDelete:
		return http.StatusNoContent, nil
	default:
		if len(reqBody) > 0 {
			return http.StatusOK, reqBody
		}
		return http.StatusOK, []byte("{}")
	}
}

// Mutations returns the recorded requests that are not reads
func (t *Transport) Mutations() []RequestRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []RequestRecord
	for _, r := range t.Requests {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			out = append(out, r)
		}
	}
	return out
}
