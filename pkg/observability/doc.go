// Package observability provides structured logging and Prometheus
// metrics for the access engine.
//
// Logger wraps log/slog with a JSON handler and a small chained API
// (WithField, WithError). Metrics registers the gatekeeper_* counter
// and histogram families on a caller-supplied registry so tests can
// use isolated registries.
package observability
