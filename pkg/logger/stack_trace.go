package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	apperrors "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/errors"
)

const maxStackFrames = 32

// expectedError is implemented by domain errors that are reported to operators
// as part of normal operation (rejected plan entries, invalid declarations).
type expectedError interface {
	Expected() bool
}

// shouldCaptureStackTrace reports whether err looks like a bug rather than an
// operational failure. Shutdown, transport failures, OCM API responses and
// expected domain errors never carry a stack trace.
func shouldCaptureStackTrace(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.EOF):
		return false
	case apperrors.IsNetworkError(err):
		return false
	}

	if _, ok := apperrors.IsAPIError(err); ok {
		return false
	}
	var expected expectedError
	if errors.As(err, &expected) && expected.Expected() {
		return false
	}
	return true
}

// WithStackTraceField returns a context carrying frames under StackTraceKey.
// An empty slice leaves ctx unchanged.
func WithStackTraceField(ctx context.Context, frames []string) context.Context {
	if len(frames) == 0 {
		return ctx
	}
	return WithLogField(ctx, StackTraceKey, frames)
}

// CaptureStackTrace returns the caller's stack as "file:line function"
// entries, skipping skip additional frames. Frames inside the Go runtime are
// dropped.
func CaptureStackTrace(skip int) []string {
	pcs := make([]uintptr, maxStackFrames)
	// runtime.Callers and CaptureStackTrace itself
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return nil
	}

	var stack []string
	frames := runtime.CallersFrames(pcs[:n])
	for frame, more := frames.Next(); ; frame, more = frames.Next() {
		if !strings.HasPrefix(frame.Function, "runtime.") {
			stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return stack
}
