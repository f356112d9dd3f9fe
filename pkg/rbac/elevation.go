package rbac

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lopanhq/gatekeeper/pkg/audit"
)

// RequestElevation files a time-boxed request for temporary possession
// of a role. The request starts pending and waits for an administrator
// review.
func (e *Engine) RequestElevation(ctx context.Context, role Role, duration time.Duration, reason string) (*ElevationRequest, error) {
	requester, err := e.identity.CurrentUser(ctx)
	if err != nil || requester == nil {
		return nil, fmt.Errorf("%w: not authenticated", ErrInsufficientPermission)
	}
	if !requester.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrInsufficientPermission)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("elevation duration must be positive")
	}
	if duration > e.maxElevation {
		return nil, fmt.Errorf("%w: %s > %s", ErrDurationExceeded, duration, e.maxElevation)
	}

	e.mu.Lock()
	if e.hierarchy.Definition(role) == nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: role %q", ErrNotFound, role)
	}
	for _, held := range e.rolesOfLocked(requester) {
		if held == role {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: user %s already holds role %s", ErrConflict, requester.ID, role)
		}
	}
	for _, req := range e.elevations {
		if req.RequesterID == requester.ID && req.Role == role && req.Status == ElevationPending {
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: pending elevation request for role %s already exists", ErrConflict, role)
		}
	}

	request := &ElevationRequest{
		ID:            uuid.NewString(),
		RequesterID:   requester.ID,
		RequesterName: requester.Name,
		Role:          role,
		Reason:        reason,
		RequestedAt:   e.now(),
		Duration:      duration,
		Status:        ElevationPending,
	}
	e.elevations[request.ID] = request
	e.mu.Unlock()

	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventElevationRequest,
		Status:     audit.StatusSuccess,
		UserID:     requester.ID,
		ResourceID: request.ID,
		Message:    fmt.Sprintf("requested elevation to %s for %s", role, duration),
		Details: map[string]string{
			"role":     string(role),
			"duration": duration.String(),
			"reason":   reason,
		},
	})
	return request, nil
}

// ReviewElevation approves or rejects a pending request. Review
// requires the administrator role. Approval creates a role assignment
// expiring at review time plus the requested duration, as one atomic
// transition with the status change.
func (e *Engine) ReviewElevation(ctx context.Context, requestID string, approve bool, notes string) (*ElevationRequest, error) {
	reviewer, err := e.identity.CurrentUser(ctx)
	if err != nil || reviewer == nil {
		return nil, fmt.Errorf("%w: not authenticated", ErrInsufficientPermission)
	}
	if !reviewer.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrInsufficientPermission)
	}

	e.mu.Lock()
	isAdmin := false
	for _, held := range e.rolesOfLocked(reviewer) {
		if held == RoleAdministrator {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: elevation review requires administrator", ErrInsufficientPermission)
	}

	request, ok := e.elevations[requestID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: elevation request %q", ErrNotFound, requestID)
	}
	if request.Status.Terminal() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: elevation request %q already %s", ErrConflict, requestID, request.Status)
	}

	now := e.now()
	decision := "rejected"
	if approve {
		expiresAt := now.Add(request.Duration)
		reason := fmt.Sprintf("temporary elevation: %s", request.Reason)
		if _, err := e.assignLocked(ctx, request.Role, request.RequesterID, reviewer.ID, &expiresAt, reason); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		request.Status = ElevationApproved
		decision = "approved"
	} else {
		request.Status = ElevationRejected
	}
	request.ReviewerID = reviewer.ID
	request.ReviewedAt = &now
	request.ReviewNotes = notes
	result := *request
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.ElevationReviewsTotal.WithLabelValues(decision).Inc()
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventElevationReview,
		Status:     audit.StatusSuccess,
		UserID:     reviewer.ID,
		ResourceID: request.ID,
		Message:    fmt.Sprintf("%s elevation of %s to %s", decision, request.RequesterID, request.Role),
		Details: map[string]string{
			"role":      string(request.Role),
			"requester": request.RequesterID,
			"decision":  decision,
			"notes":     notes,
		},
	})
	return &result, nil
}

// ElevationRequests returns all elevation requests, newest first.
func (e *Engine) ElevationRequests() []*ElevationRequest {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*ElevationRequest, 0, len(e.elevations))
	for _, req := range e.elevations {
		clone := *req
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out
}
