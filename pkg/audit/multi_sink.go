package audit

import (
	"context"
)

// MultiSink fans events out to several sinks. A failing sink does not
// stop delivery to the others; the first error is returned for metrics.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a fan-out sink.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Log delivers the event to every sink.
func (m *MultiSink) Log(ctx context.Context, event *SecurityEvent) error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Log(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every sink.
func (m *MultiSink) Close() error {
	var firstErr error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
