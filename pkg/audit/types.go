package audit

import (
	"encoding/json"
	"time"
)

// EventType categorizes a security event.
type EventType string

const (
	EventPermissionCheck   EventType = "authz.permission_check"
	EventAccessDenied      EventType = "authz.access_denied"
	EventPermissionGrant   EventType = "authz.permission_grant"
	EventPermissionRevoke  EventType = "authz.permission_revoke"
	EventRoleAssign        EventType = "authz.role_assign"
	EventRoleRevoke        EventType = "authz.role_revoke"
	EventRoleExpire        EventType = "authz.role_expire"
	EventElevationRequest  EventType = "authz.elevation_request"
	EventElevationReview   EventType = "authz.elevation_review"
	EventCacheInvalidation EventType = "authz.cache_invalidation"
)

// EventStatus is the outcome recorded with an event.
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusFailure EventStatus = "failure"
	StatusDenied  EventStatus = "denied"
)

// SecurityEvent is one audit record. The engine emits these best-effort:
// a failed audit write never fails the security decision it describes.
type SecurityEvent struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Event      EventType         `json:"event"`
	Status     EventStatus       `json:"status"`
	UserID     string            `json:"user_id,omitempty"`
	ResourceID string            `json:"resource_id,omitempty"`
	Message    string            `json:"message,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// ToJSON serializes the event.
func (e *SecurityEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an event.
func FromJSON(data []byte) (*SecurityEvent, error) {
	var event SecurityEvent
	err := json.Unmarshal(data, &event)
	return &event, err
}
