package otel

import (
	"context"
	"net/http"

	"github.com/cloudevents/sdk-go/v2/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceContextIntoCloudEvent copies the W3C trace context of ctx into
// the traceparent/tracestate extensions of evt. Nothing is set when ctx
// carries no valid span context.
func InjectTraceContextIntoCloudEvent(ctx context.Context, evt *event.Event) {
	if evt == nil {
		return
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	if traceparent := carrier.Get("traceparent"); traceparent != "" {
		evt.SetExtension("traceparent", traceparent)
	} else {
		return
	}
	if tracestate := carrier.Get("tracestate"); tracestate != "" {
		evt.SetExtension("tracestate", tracestate)
	}
}

// InjectTraceContextIntoHeader writes traceparent/tracestate for ctx into an
// outgoing OCM request header
func InjectTraceContextIntoHeader(ctx context.Context, header http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(header))
}
