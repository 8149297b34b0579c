package errors

import (
	"context"
	"errors"
	"net"
	"syscall"

	utilnet "k8s.io/apimachinery/pkg/util/net"
	"k8s.io/apimachinery/pkg/util/sets"
)

// retryableErrnos are socket errors utilnet does not classify
var retryableErrnos = sets.New(
	syscall.ETIMEDOUT,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.ECONNABORTED,
	syscall.EPIPE,
)

// IsNetworkError reports whether err is a transport failure while talking to
// OCM: refused or reset connections, timeouts, unexpected EOFs, unreachable
// hosts and temporary DNS failures. The OCM client retries these. A canceled
// context is never a network error.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if utilnet.IsConnectionRefused(err) ||
		utilnet.IsConnectionReset(err) ||
		utilnet.IsTimeout(err) ||
		utilnet.IsProbableEOF(err) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && retryableErrnos.Has(errno) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
