package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "fake network error" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

// ocmCallError wraps err the way net/http reports a failed OCM request
func ocmCallError(err error) error {
	return &url.Error{
		Op:  "Get",
		URL: "https://api.openshift.com/api/clusters_mgmt/v1/clusters",
		Err: err,
	}
}

func dialError(errno syscall.Errno) error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", errno),
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},

		{name: "connection refused", err: syscall.ECONNREFUSED, want: true},
		{name: "connection reset", err: syscall.ECONNRESET, want: true},
		{name: "connection timed out", err: syscall.ETIMEDOUT, want: true},
		{name: "network unreachable", err: syscall.ENETUNREACH, want: true},
		{name: "no route to host", err: syscall.EHOSTUNREACH, want: true},
		{name: "connection aborted", err: syscall.ECONNABORTED, want: true},
		{name: "broken pipe", err: syscall.EPIPE, want: true},
		{name: "permission denied", err: syscall.EACCES, want: false},

		{name: "dial refused", err: dialError(syscall.ECONNREFUSED), want: true},
		{name: "dial unreachable inside OCM call", err: ocmCallError(dialError(syscall.EHOSTUNREACH)), want: true},
		{name: "wrapped twice", err: fmt.Errorf("list machine pools: %w", ocmCallError(dialError(syscall.ECONNRESET))), want: true},

		{name: "EOF", err: io.EOF, want: true},
		{name: "unexpected EOF in OCM call", err: ocmCallError(io.ErrUnexpectedEOF), want: true},

		{name: "net.Error timeout", err: &fakeNetError{timeout: true}, want: true},
		{name: "net.Error without timeout", err: &fakeNetError{timeout: false}, want: false},

		{name: "DNS temporary failure", err: &net.DNSError{Err: "server misbehaving", Name: "api.openshift.com", IsTemporary: true}, want: true},
		{name: "DNS timeout", err: &net.DNSError{Err: "i/o timeout", Name: "api.openshift.com", IsTimeout: true}, want: true},
		{name: "DNS no such host", err: &net.DNSError{Err: "no such host", Name: "api.example.invalid", IsNotFound: true}, want: false},

		{name: "canceled context", err: context.Canceled, want: false},
		{name: "canceled OCM call", err: ocmCallError(context.Canceled), want: false},

		{name: "plain error", err: fmt.Errorf("invalid pool"), want: false},
		{name: "API error", err: &APIError{Method: "GET", StatusCode: 500}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkError(tt.err))
		})
	}
}
