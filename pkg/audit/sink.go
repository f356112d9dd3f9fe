package audit

import (
	"context"
)

// Sink receives security events. Implementations must tolerate being
// called concurrently. Callers treat writes as fire-and-forget: errors
// are surfaced for metrics but never abort the operation being audited.
type Sink interface {
	// Log writes one event.
	Log(ctx context.Context, event *SecurityEvent) error

	// Close flushes and releases the sink.
	Close() error
}

// NopSink discards all events.
type NopSink struct{}

// Log discards the event.
func (NopSink) Log(context.Context, *SecurityEvent) error { return nil }

// Close does nothing.
func (NopSink) Close() error { return nil }
