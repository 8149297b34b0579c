// Package events publishes a CloudEvent for every action the reconciler acts on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"
	pkgotel "github.com/openshift-hyperfleet/machinepool-reconciler/pkg/otel"
)

const (
	// EventTypePrefix is followed by the operation (create, update, delete)
	EventTypePrefix = "io.hyperfleet.machinepools."
	// DefaultSource is the CloudEvent source when none is configured
	DefaultSource = "/machinepool-reconciler"
)

// ActionEvent is the data payload of an audit event
type ActionEvent struct {
	Operation string                 `json:"operation"`
	Cluster   string                 `json:"cluster"`
	PoolID    string                 `json:"pool_id"`
	Kind      string                 `json:"kind"`
	Status    string                 `json:"status"`
	DryRun    bool                   `json:"dry_run"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// NewCloudEvent wraps an action event in a CloudEvent. The trace context of
// ctx, if any, is attached as traceparent/tracestate extensions.
func NewCloudEvent(ctx context.Context, source string, a ActionEvent) (event.Event, error) {
	if source == "" {
		source = DefaultSource
	}
	evt := cloudevents.NewEvent()
	evt.SetID(uuid.New().String())
	evt.SetSource(source)
	evt.SetType(EventTypePrefix + a.Operation)
	evt.SetSubject(a.Cluster + "/" + a.PoolID)
	evt.SetTime(time.Now().UTC())
	if err := evt.SetData(cloudevents.ApplicationJSON, a); err != nil {
		return evt, fmt.Errorf("failed to set event data: %w", err)
	}
	pkgotel.InjectTraceContextIntoCloudEvent(ctx, &evt)
	if err := evt.Validate(); err != nil {
		return evt, fmt.Errorf("invalid audit event: %w", err)
	}
	return evt, nil
}

// HTTPPublisher sends audit events to a CloudEvents HTTP sink
type HTTPPublisher struct {
	client cloudevents.Client
	target string
	source string
}

// NewHTTPPublisher creates a publisher posting binary-mode CloudEvents to target
func NewHTTPPublisher(target, source string) (*HTTPPublisher, error) {
	if target == "" {
		return nil, fmt.Errorf("sink URL is required")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create CloudEvents HTTP client: %w", err)
	}
	return &HTTPPublisher{client: client, target: target, source: source}, nil
}

func (p *HTTPPublisher) Publish(ctx context.Context, a ActionEvent) error {
	evt, err := NewCloudEvent(ctx, p.source, a)
	if err != nil {
		return err
	}
	result := p.client.Send(cloudevents.ContextWithTarget(ctx, p.target), evt)
	if cloudevents.IsUndelivered(result) {
		return fmt.Errorf("failed to deliver event %s to %s: %w", evt.ID(), p.target, result)
	}
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("event %s was not acknowledged by %s: %w", evt.ID(), p.target, result)
	}
	return nil
}

// WriterPublisher writes audit events as JSON lines, used by the plan command
// and in tests
type WriterPublisher struct {
	mu     sync.Mutex
	w      io.Writer
	source string
}

func NewWriterPublisher(w io.Writer, source string) *WriterPublisher {
	return &WriterPublisher{w: w, source: source}
}

func (p *WriterPublisher) Publish(ctx context.Context, a ActionEvent) error {
	evt, err := NewCloudEvent(ctx, p.source, a)
	if err != nil {
		return err
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintln(p.w, string(b))
	return err
}
