package rbac

import (
	"time"
)

// Resource represents a resource type in the system
type Resource string

const (
	ResourceCustomer   Resource = "customer"
	ResourceBatch      Resource = "batch"
	ResourceMachine    Resource = "machine"
	ResourceInventory  Resource = "inventory"
	ResourceUser       Resource = "user"
	ResourceRole       Resource = "role"
	ResourcePermission Resource = "permission"
	ResourceAuditLog   Resource = "audit_log"
	ResourceSystem     Resource = "system"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionView      Action = "view"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionApprove   Action = "approve"
	ActionOperate   Action = "operate"
	ActionConfigure Action = "configure"
	ActionAdjust    Action = "adjust"
	ActionManage    Action = "manage"
	ActionExport    Action = "export"
)

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
}

// String returns the canonical key for the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Category groups related permissions for display
type Category string

const (
	CategoryCustomers      Category = "customers"
	CategoryProduction     Category = "production"
	CategoryMachines       Category = "machines"
	CategoryInventory      Category = "inventory"
	CategoryAdministration Category = "administration"
)

// Role is a named bundle of permissions assignable to a user
type Role string

const (
	RoleUnauthorized  Role = "unauthorized"
	RoleOperator      Role = "operator"
	RoleTechnician    Role = "technician"
	RoleSupervisor    Role = "supervisor"
	RoleAdministrator Role = "administrator"
)

// RoleDefinition owns a role's base permissions, conditional rules and
// the roles it inherits from. Level is used only for display ordering,
// never for cycle prevention.
type RoleDefinition struct {
	Role        Role              `json:"role"`
	DisplayName string            `json:"display_name"`
	Description string            `json:"description"`
	Level       int               `json:"level"`
	Permissions []Permission      `json:"permissions"`
	Inherits    []Role            `json:"inherits,omitempty"`
	Rules       []ConditionalRule `json:"rules,omitempty"`
}

// ConditionalRule grants a permission only when every condition matches
// the evaluation context exactly and the optional time constraint holds.
// Priority is stored for display ordering; evaluation is any-match.
type ConditionalRule struct {
	ID          string           `json:"id"`
	Permission  Permission       `json:"permission"`
	Conditions  map[string]Value `json:"conditions,omitempty"`
	TimeWindow  *TimeConstraint  `json:"time_window,omitempty"`
	Priority    int              `json:"priority"`
	Description string           `json:"description,omitempty"`
}

// PermissionContext is the ephemeral context for a single evaluation.
type PermissionContext struct {
	UserID     string           `json:"user_id"`
	TargetID   string           `json:"target_id,omitempty"`
	TargetType string           `json:"target_type,omitempty"`
	Data       map[string]Value `json:"data,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// PermissionResult is the outcome of one evaluation.
type PermissionResult struct {
	Permission  string             `json:"permission"`
	Granted     bool               `json:"granted"`
	Reason      string             `json:"reason"`
	Sources     []string           `json:"sources,omitempty"`
	Context     *PermissionContext `json:"context,omitempty"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

// RoleAssignment is a time-bounded role grant. Revocation soft-invalidates
// the record by setting an immediate expiry; physical removal happens in
// the periodic cleanup sweep.
type RoleAssignment struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	Role       Role             `json:"role"`
	AssignedBy string           `json:"assigned_by"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
	Conditions map[string]Value `json:"conditions,omitempty"`
	Active     bool             `json:"active"`
	Reason     string           `json:"reason,omitempty"`
}

// Valid reports whether the assignment is in effect at instant t.
func (a *RoleAssignment) Valid(t time.Time) bool {
	if !a.Active {
		return false
	}
	if a.ExpiresAt == nil {
		return true
	}
	return !t.After(*a.ExpiresAt)
}

// ChangeAction is the kind of change recorded in the role change log.
type ChangeAction string

const (
	ChangeAssigned ChangeAction = "assigned"
	ChangeRevoked  ChangeAction = "revoked"
	ChangeExpired  ChangeAction = "expired"
	ChangeModified ChangeAction = "modified"
)

// RoleChangeEntry is an append-only audit record of a role change.
// Entries are never mutated after creation.
type RoleChangeEntry struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Role      Role         `json:"role"`
	Action    ChangeAction `json:"action"`
	ActorID   string       `json:"actor_id"`
	Timestamp time.Time    `json:"timestamp"`
	Reason    string       `json:"reason,omitempty"`
	Before    []Role       `json:"before"`
	After     []Role       `json:"after"`
}

// ElevationStatus is the lifecycle state of an elevation request.
// Approved, rejected and expired are terminal.
type ElevationStatus string

const (
	ElevationPending  ElevationStatus = "pending"
	ElevationApproved ElevationStatus = "approved"
	ElevationRejected ElevationStatus = "rejected"
	ElevationExpired  ElevationStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s ElevationStatus) Terminal() bool {
	return s == ElevationApproved || s == ElevationRejected || s == ElevationExpired
}

// ElevationRequest is a time-boxed request for temporary possession of a
// role beyond the requester's standing assignments.
type ElevationRequest struct {
	ID            string          `json:"id"`
	RequesterID   string          `json:"requester_id"`
	RequesterName string          `json:"requester_name,omitempty"`
	Role          Role            `json:"role"`
	Reason        string          `json:"reason"`
	RequestedAt   time.Time       `json:"requested_at"`
	Duration      time.Duration   `json:"duration"`
	Status        ElevationStatus `json:"status"`
	ReviewerID    string          `json:"reviewer_id,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewed_at,omitempty"`
	ReviewNotes   string          `json:"review_notes,omitempty"`
}
