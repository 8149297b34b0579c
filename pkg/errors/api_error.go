package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned by the OCM client when the clusters_mgmt API answers
// with a non-2xx status. Reason and Code come from the OCM error body
// ({"kind":"Error","code":"CLUSTERS-MGMT-404","reason":"..."}) when present.
type APIError struct {
	Method       string
	URL          string
	StatusCode   int
	Status       string
	Code         string
	Reason       string
	ResponseBody []byte
	Attempts     int
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("OCM API %s %s returned %d", e.Method, e.URL, e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	return msg
}

// IsAPIError unwraps err into an *APIError
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool    { return e.StatusCode == http.StatusForbidden }
func (e *APIError) IsBadRequest() bool   { return e.StatusCode == http.StatusBadRequest }
func (e *APIError) IsConflict() bool     { return e.StatusCode == http.StatusConflict }
func (e *APIError) IsRateLimited() bool  { return e.StatusCode == http.StatusTooManyRequests }

func (e *APIError) IsTimeout() bool {
	return e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable reports whether a request that failed with err may be retried:
// network failures, rate limiting, timeouts and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.IsRateLimited() || apiErr.IsTimeout() || apiErr.IsServerError()
	}
	return IsNetworkError(err)
}
