package rbac

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lopanhq/gatekeeper/pkg/audit"
)

// systemActor is recorded for changes driven by the engine itself, such
// as the periodic expiry sweep.
const systemActor = "system"

// AssignRole grants a role to a user, optionally until expiresAt. The
// caller must hold the manage-roles permission and may not assign the
// administrator role to themselves. An equivalent active assignment is
// a conflict, never a silent no-op.
func (e *Engine) AssignRole(ctx context.Context, role Role, userID string, expiresAt *time.Time, reason string) (*RoleAssignment, error) {
	caller, err := e.requirePermission(ctx, PermManageRoles)
	if err != nil {
		return nil, err
	}
	if role == RoleAdministrator && caller.ID == userID {
		return nil, fmt.Errorf("%w: cannot assign administrator to self", ErrSelfModification)
	}

	e.mu.Lock()
	assignment, err := e.assignLocked(ctx, role, userID, caller.ID, expiresAt, reason)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.AssignmentMutationsTotal.WithLabelValues(string(ChangeAssigned)).Inc()
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventRoleAssign,
		Status:     audit.StatusSuccess,
		UserID:     caller.ID,
		ResourceID: userID,
		Message:    fmt.Sprintf("assigned role %s to user %s", role, userID),
		Details: map[string]string{
			"role":          string(role),
			"target_user":   userID,
			"assignment_id": assignment.ID,
			"reason":        reason,
		},
	})
	return assignment, nil
}

// assignLocked creates the assignment and its change-log entry. The
// write lock must be held; the cache refresh for the affected user is
// part of the same critical section so no stale read can slip between
// the mutation and the invalidation.
func (e *Engine) assignLocked(ctx context.Context, role Role, userID, actorID string, expiresAt *time.Time, reason string) (*RoleAssignment, error) {
	if e.hierarchy.Definition(role) == nil {
		return nil, fmt.Errorf("%w: role %q", ErrNotFound, role)
	}

	now := e.now()
	for _, a := range e.assignments {
		if a.UserID == userID && a.Role == role && a.Valid(now) {
			return nil, fmt.Errorf("%w: user %s already has an active %s assignment", ErrConflict, userID, role)
		}
	}

	before := e.assignedRolesLocked(userID)
	assignment := &RoleAssignment{
		ID:         uuid.NewString(),
		UserID:     userID,
		Role:       role,
		AssignedBy: actorID,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
		Active:     true,
		Reason:     reason,
	}
	e.assignments[assignment.ID] = assignment
	e.appendChangeLocked(userID, role, ChangeAssigned, actorID, reason, before)
	e.cache.InvalidateUser(ctx, userID)
	return assignment, nil
}

// RevokeRole soft-invalidates an active assignment by setting an
// immediate expiry. The record stays until the cleanup sweep prunes it.
func (e *Engine) RevokeRole(ctx context.Context, role Role, userID string, reason string) error {
	caller, err := e.requirePermission(ctx, PermManageRoles)
	if err != nil {
		return err
	}
	if role == RoleAdministrator && caller.ID == userID {
		return fmt.Errorf("%w: cannot revoke own administrator role", ErrSelfModification)
	}

	e.mu.Lock()
	now := e.now()
	var target *RoleAssignment
	for _, a := range e.assignments {
		if a.UserID == userID && a.Role == role && a.Valid(now) {
			target = a
			break
		}
	}
	if target == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: no active %s assignment for user %s", ErrNotFound, role, userID)
	}

	before := e.assignedRolesLocked(userID)
	expiry := now
	target.ExpiresAt = &expiry
	target.Active = false
	e.appendChangeLocked(userID, role, ChangeRevoked, caller.ID, reason, before)
	e.cache.InvalidateUser(ctx, userID)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.AssignmentMutationsTotal.WithLabelValues(string(ChangeRevoked)).Inc()
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventRoleRevoke,
		Status:     audit.StatusSuccess,
		UserID:     caller.ID,
		ResourceID: userID,
		Message:    fmt.Sprintf("revoked role %s from user %s", role, userID),
		Details: map[string]string{
			"role":        string(role),
			"target_user": userID,
			"reason":      reason,
		},
	})
	return nil
}

// CleanupExpiredAssignments removes assignments whose expiry has
// passed, appending one expired change-log entry per removal. Expiry is
// otherwise detected lazily by the validity check; this sweep is meant
// to run periodically, not on the read path. It also expires pending
// elevation requests older than the maximum elevation duration.
func (e *Engine) CleanupExpiredAssignments(ctx context.Context) int {
	e.mu.Lock()
	now := e.now()

	type removal struct {
		userID string
		role   Role
	}
	var removed []removal
	for id, a := range e.assignments {
		if a.ExpiresAt == nil || now.Before(*a.ExpiresAt) || now.Equal(*a.ExpiresAt) {
			continue
		}
		wasActive := a.Active
		before := e.assignedRolesLocked(a.UserID)
		delete(e.assignments, id)
		if wasActive {
			// Revoked records already carry their revoked entry; only
			// assignments that lapsed while active log an expiry.
			e.appendChangeLocked(a.UserID, a.Role, ChangeExpired, systemActor, "assignment expired", before)
			removed = append(removed, removal{userID: a.UserID, role: a.Role})
		}
		e.cache.InvalidateUser(ctx, a.UserID)
	}

	for _, req := range e.elevations {
		if req.Status == ElevationPending && now.Sub(req.RequestedAt) > e.maxElevation {
			req.Status = ElevationExpired
		}
	}
	e.mu.Unlock()

	for _, r := range removed {
		if e.metrics != nil {
			e.metrics.ExpiredAssignmentsSwept.Inc()
		}
		e.emitAudit(ctx, &audit.SecurityEvent{
			Event:      audit.EventRoleExpire,
			Status:     audit.StatusSuccess,
			UserID:     systemActor,
			ResourceID: r.userID,
			Message:    fmt.Sprintf("role %s assignment for user %s expired", r.role, r.userID),
			Details:    map[string]string{"role": string(r.role), "target_user": r.userID},
		})
	}
	if len(removed) > 0 {
		e.logger.WithField("count", len(removed)).Info("removed expired role assignments")
	}
	return len(removed)
}

// Assignments returns the assignments for a user, newest first.
func (e *Engine) Assignments(userID string) []*RoleAssignment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []*RoleAssignment
	for _, a := range e.assignments {
		if a.UserID == userID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// appendChangeLocked records a role change with before/after snapshots
// of the user's assigned roles. Entries are append-only.
func (e *Engine) appendChangeLocked(userID string, role Role, action ChangeAction, actorID, reason string, before []Role) {
	e.changeLog = append(e.changeLog, RoleChangeEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Action:    action,
		ActorID:   actorID,
		Timestamp: e.now(),
		Reason:    reason,
		Before:    before,
		After:     e.assignedRolesLocked(userID),
	})
}

// ChangeLog returns the change-log entries for a user in chronological
// order. An empty userID returns the full log.
func (e *Engine) ChangeLog(userID string) []RoleChangeEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []RoleChangeEntry
	for _, entry := range e.changeLog {
		if userID == "" || entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out
}
