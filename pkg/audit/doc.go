// Package audit records security events emitted by the access engine.
//
// # Overview
//
// Every permission evaluation, role mutation and elevation decision
// produces a SecurityEvent. The engine writes events fire-and-forget:
// a sink failure is counted and logged but never blocks or fails the
// operation that produced the event.
//
// # Sinks
//
// Three production sinks are provided, all satisfying the Sink
// interface:
//
//   - FileSink: JSON lines appended to security.log with size-based
//     rotation of numbered backups
//   - DBSink: rows in a security_events SQL table with filtered
//     search (user, event type, status, time window)
//   - MultiSink: fan-out across several sinks; a failing sink does
//     not stop delivery to the others
//
// NopSink discards events and backs deployments that disable
// auditing.
package audit
