// Package telemetry delivers built events to a sink without ever blocking
// the instrumented call path.
//
// DESIGN: Emitter owns a bounded queue of event batches:
//   - Emit enqueues a whole batch atomically so events from one exchange
//     arrive at the sink in order, or drops the batch when the queue is full
//   - Background workers drain the queue and deliver with bounded retries
//   - Stats exposes emitted/dropped/failed counters for inspection
package telemetry

import (
	"context"

	"github.com/vnfmsqkek3/bedrock-observability-go/events"
)

// Sink receives batches of telemetry events. Implementations must be safe
// for concurrent use.
type Sink interface {
	// Deliver sends one batch. A non-nil error triggers the emitter's
	// retry policy.
	Deliver(ctx context.Context, batch []events.Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch []events.Event) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, batch []events.Event) error {
	return f(ctx, batch)
}

// DiscardSink drops every batch. Used when no sink endpoint is configured.
type DiscardSink struct{}

// Deliver discards the batch.
func (DiscardSink) Deliver(context.Context, []events.Event) error { return nil }
