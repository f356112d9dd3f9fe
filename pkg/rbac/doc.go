// Package rbac implements the access control engine for the Lopan
// production management backend: a hierarchical, conditional,
// time-bounded role and permission system.
//
// # Overview
//
// The engine answers "can user U exercise permission P in context C".
// Permissions are drawn from a static catalog grouped into categories.
// Roles form a directed inheritance graph; a role's effective
// permission set is the transitive closure over that graph, resolved
// with a visited-set guard so cyclic data terminates. Conditional
// rules grant a permission only when context key/value conditions and
// an optional time constraint (weekday set, time-of-day window with
// overnight wraparound, absolute bounds) all hold.
//
// # Evaluation
//
// Engine.Evaluate fails closed: a missing or disabled user yields a
// denied result with a reason, never an error. Granted results carry
// the granting sources ("role:supervisor", "conditional:supervisor").
// Results are memoized per (user, permission) with a fixed TTL; any
// role or permission mutation invalidates the whole cache, trading hit
// rate for correctness.
//
// # Lifecycle
//
// Role assignments are time-bounded grants. Revocation soft-invalidates
// by setting an immediate expiry; a periodic cleanup sweep logs an
// expired change entry and prunes the record. Temporary elevation runs
// through a request/approval workflow: a pending request reviewed by an
// administrator becomes a time-bounded assignment on approval.
//
// Every mutation is recorded in an append-only role change log and
// emitted to the audit sink best-effort: audit failures never fail the
// security decision.
//
// # Related Packages
//
//   - pkg/identity: authenticated-user resolution
//   - pkg/audit: security event sinks
//   - pkg/observability: logging and metrics
package rbac
