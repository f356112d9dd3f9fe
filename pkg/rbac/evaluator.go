package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lopanhq/gatekeeper/pkg/audit"
	"github.com/lopanhq/gatekeeper/pkg/identity"
	"github.com/lopanhq/gatekeeper/pkg/observability"
)

// Denial reasons surfaced in results. Evaluation failures are encoded
// as non-granted results, never as errors: denial is an expected
// outcome, not an exceptional one.
const (
	ReasonNotAuthenticated = "not authenticated"
	ReasonAccountDisabled  = "account disabled"
	ReasonNoPermission     = "no permission granted"
)

// DefaultMaxElevation bounds the duration of a temporary elevation.
const DefaultMaxElevation = 24 * time.Hour

// Options configures an Engine. Zero fields get safe defaults.
type Options struct {
	// Definitions seeds the role definitions. Defaults to
	// BuiltInRoleDefinitions.
	Definitions map[Role]*RoleDefinition

	// Cache is the permission result cache. Defaults to a MemoryCache
	// with DefaultCacheTTL.
	Cache ResultCache

	// Identity resolves the current authenticated user.
	Identity identity.Provider

	// Audit receives security events, best-effort.
	Audit audit.Sink

	// Logger for engine diagnostics.
	Logger *observability.Logger

	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics

	// MaxElevation bounds elevation request durations. Defaults to
	// DefaultMaxElevation.
	MaxElevation time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Engine is the access evaluation service. It owns all access-control
// state: role definitions, assignments, the change log and elevation
// requests. Mutations are serialized under a single write lock and
// paired with cache invalidation as one atomic step; evaluation is
// read-mostly and runs concurrently under the read lock.
type Engine struct {
	mu        sync.RWMutex
	hierarchy *Hierarchy

	assignments map[string]*RoleAssignment
	changeLog   []RoleChangeEntry
	elevations  map[string]*ElevationRequest

	cache        ResultCache
	identity     identity.Provider
	audit        audit.Sink
	logger       *observability.Logger
	metrics      *observability.Metrics
	maxElevation time.Duration
	now          func() time.Time
}

// NewEngine creates an engine. There are no package-level singletons;
// the caller owns the instance and wires it into whatever needs it.
func NewEngine(opts Options) *Engine {
	if opts.Definitions == nil {
		opts.Definitions = BuiltInRoleDefinitions()
	}
	if opts.Cache == nil {
		opts.Cache = NewMemoryCache(0, DefaultCacheTTL)
	}
	if opts.Identity == nil {
		opts.Identity = identity.ContextProvider{}
	}
	if opts.Audit == nil {
		opts.Audit = audit.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if opts.MaxElevation <= 0 {
		opts.MaxElevation = DefaultMaxElevation
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Engine{
		hierarchy:    NewHierarchy(opts.Definitions),
		assignments:  make(map[string]*RoleAssignment),
		elevations:   make(map[string]*ElevationRequest),
		cache:        opts.Cache,
		identity:     opts.Identity,
		audit:        opts.Audit,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		maxElevation: opts.MaxElevation,
		now:          opts.Clock,
	}
}

// Evaluate answers "can the current user exercise perm in this
// context". It fails closed: missing authentication or a disabled
// account produce a denied result with the corresponding reason.
func (e *Engine) Evaluate(ctx context.Context, perm Permission, pctx *PermissionContext) *PermissionResult {
	start := e.now()

	user, err := e.identity.CurrentUser(ctx)
	if err != nil || user == nil {
		result := e.deniedResult(perm, pctx, ReasonNotAuthenticated)
		e.recordEvaluation(ctx, "", result)
		return result
	}
	if !user.Active {
		result := e.deniedResult(perm, pctx, ReasonAccountDisabled)
		result.Context = e.fillContext(pctx, user.ID)
		e.recordEvaluation(ctx, user.ID, result)
		return result
	}

	key := perm.String()
	if cached, ok := e.cache.Get(ctx, user.ID, key); ok {
		if e.metrics != nil {
			e.metrics.CacheHitsTotal.Inc()
		}
		e.recordEvaluation(ctx, user.ID, cached)
		return cached
	}
	if e.metrics != nil {
		e.metrics.CacheMissesTotal.Inc()
	}

	pctx = e.fillContext(pctx, user.ID)

	e.mu.RLock()
	var sources []string
	seen := make(map[string]bool)
	for _, role := range e.rolesOfLocked(user) {
		if e.hierarchy.HasPermission(role, perm) {
			source := "role:" + string(role)
			if !seen[source] {
				seen[source] = true
				sources = append(sources, source)
			}
		}

		def := e.hierarchy.Definition(role)
		if def == nil {
			continue
		}
		for _, rule := range def.Rules {
			if rule.Permission != perm {
				continue
			}
			if RuleSatisfied(rule, pctx) {
				source := "conditional:" + string(role)
				if !seen[source] {
					seen[source] = true
					sources = append(sources, source)
				}
			}
		}
	}
	result := &PermissionResult{
		Permission:  key,
		Granted:     len(sources) > 0,
		Sources:     sources,
		Context:     pctx,
		EvaluatedAt: e.now(),
	}
	if result.Granted {
		result.Reason = "granted by: " + strings.Join(sources, ", ")
	} else {
		result.Reason = ReasonNoPermission
	}

	// The write-through must stay inside the read-lock critical
	// section: once a mutation's InvalidateAll has run under the write
	// lock, no evaluation computed against the old definitions may
	// re-cache its result behind it.
	e.cache.Put(ctx, user.ID, key, result)
	e.mu.RUnlock()

	if e.metrics != nil {
		e.metrics.EvaluationDuration.Observe(e.now().Sub(start).Seconds())
	}
	e.recordEvaluation(ctx, user.ID, result)
	return result
}

// EvaluateMany evaluates each permission independently and returns a
// map keyed by permission string. There is no short-circuiting and no
// cross-permission interaction.
func (e *Engine) EvaluateMany(ctx context.Context, perms []Permission, pctx *PermissionContext) map[string]*PermissionResult {
	results := make(map[string]*PermissionResult, len(perms))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, perm := range perms {
		perm := perm
		g.Go(func() error {
			result := e.Evaluate(gctx, perm, pctx)
			mu.Lock()
			results[perm.String()] = result
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

// CurrentUserPermissions returns the union of the transitive permission
// closures of every role the current user holds, sorted by permission
// key. Unauthenticated or disabled users get an empty list.
func (e *Engine) CurrentUserPermissions(ctx context.Context) []Permission {
	user, err := e.identity.CurrentUser(ctx)
	if err != nil || user == nil || !user.Active {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	union := make(map[string]Permission)
	for _, role := range e.rolesOfLocked(user) {
		for key, perm := range e.hierarchy.Closure(role) {
			union[key] = perm
		}
	}

	perms := make([]Permission, 0, len(union))
	for _, perm := range union {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool {
		return perms[i].String() < perms[j].String()
	})
	return perms
}

// GrantPermissionToRole adds a permission to a role's base set. The
// caller must hold the manage-permissions permission. The whole result
// cache is invalidated: coarse invalidation trades hit rate for
// correctness.
func (e *Engine) GrantPermissionToRole(ctx context.Context, perm Permission, role Role) error {
	caller, err := e.requirePermission(ctx, PermManagePermissions)
	if err != nil {
		return err
	}

	e.mu.Lock()
	def := e.hierarchy.Definition(role)
	if def == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: role %q", ErrNotFound, role)
	}
	already := false
	for _, p := range def.Permissions {
		if p == perm {
			already = true
			break
		}
	}
	if !already {
		def.Permissions = append(def.Permissions, perm)
	}
	e.cache.InvalidateAll(ctx)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.CacheInvalidationsTotal.Inc()
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventPermissionGrant,
		Status:     audit.StatusSuccess,
		UserID:     caller.ID,
		ResourceID: string(role),
		Message:    fmt.Sprintf("granted %s to role %s", perm, role),
		Details:    map[string]string{"permission": perm.String(), "role": string(role)},
	})
	return nil
}

// RevokePermissionFromRole removes a permission from a role's base set.
func (e *Engine) RevokePermissionFromRole(ctx context.Context, perm Permission, role Role) error {
	caller, err := e.requirePermission(ctx, PermManagePermissions)
	if err != nil {
		return err
	}

	e.mu.Lock()
	def := e.hierarchy.Definition(role)
	if def == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: role %q", ErrNotFound, role)
	}
	index := -1
	for i, p := range def.Permissions {
		if p == perm {
			index = i
			break
		}
	}
	if index < 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: role %q does not hold %s", ErrNotFound, role, perm)
	}
	def.Permissions = append(def.Permissions[:index], def.Permissions[index+1:]...)
	e.cache.InvalidateAll(ctx)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.CacheInvalidationsTotal.Inc()
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventPermissionRevoke,
		Status:     audit.StatusSuccess,
		UserID:     caller.ID,
		ResourceID: string(role),
		Message:    fmt.Sprintf("revoked %s from role %s", perm, role),
		Details:    map[string]string{"permission": perm.String(), "role": string(role)},
	})
	return nil
}

// Definitions returns all role definitions sorted by level.
func (e *Engine) Definitions() []*RoleDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	defs := e.hierarchy.Definitions()
	out := make([]*RoleDefinition, len(defs))
	for i, def := range defs {
		clone := *def
		clone.Permissions = append([]Permission(nil), def.Permissions...)
		clone.Inherits = append([]Role(nil), def.Inherits...)
		clone.Rules = append([]ConditionalRule(nil), def.Rules...)
		out[i] = &clone
	}
	return out
}

// HierarchyPath returns the ordered inheritance path for a role.
func (e *Engine) HierarchyPath(role Role) []Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hierarchy.Path(role)
}

// AddRule attaches a conditional rule to a role definition.
func (e *Engine) AddRule(ctx context.Context, role Role, rule ConditionalRule) error {
	caller, err := e.requirePermission(ctx, PermManagePermissions)
	if err != nil {
		return err
	}
	if err := rule.TimeWindow.Validate(); err != nil {
		return fmt.Errorf("invalid time constraint: %w", err)
	}

	e.mu.Lock()
	def := e.hierarchy.Definition(role)
	if def == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: role %q", ErrNotFound, role)
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	def.Rules = append(def.Rules, rule)
	e.cache.InvalidateAll(ctx)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.CacheInvalidationsTotal.Inc()
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      audit.EventPermissionGrant,
		Status:     audit.StatusSuccess,
		UserID:     caller.ID,
		ResourceID: string(role),
		Message:    fmt.Sprintf("added conditional rule for %s to role %s", rule.Permission, role),
		Details:    map[string]string{"permission": rule.Permission.String(), "role": string(role), "rule_id": rule.ID},
	})
	return nil
}

// rolesOfLocked returns the deduplicated, sorted roles a user holds:
// standing roles from the identity layer plus roles from assignments
// valid now. Callers must hold at least the read lock.
func (e *Engine) rolesOfLocked(user *identity.User) []Role {
	now := e.now()
	set := make(map[Role]bool)
	for _, name := range user.Roles {
		set[Role(name)] = true
	}
	for _, a := range e.assignments {
		if a.UserID == user.ID && a.Valid(now) {
			set[a.Role] = true
		}
	}

	roles := make([]Role, 0, len(set))
	for role := range set {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// assignedRolesLocked returns roles a user holds via assignments valid
// now, for change-log before/after snapshots.
func (e *Engine) assignedRolesLocked(userID string) []Role {
	now := e.now()
	var roles []Role
	for _, a := range e.assignments {
		if a.UserID == userID && a.Valid(now) {
			roles = append(roles, a.Role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// requirePermission resolves the caller and checks they hold perm.
// Mutating operations signal failure via errors, unlike evaluation.
func (e *Engine) requirePermission(ctx context.Context, perm Permission) (*identity.User, error) {
	user, err := e.identity.CurrentUser(ctx)
	if err != nil || user == nil {
		return nil, fmt.Errorf("%w: not authenticated", ErrInsufficientPermission)
	}
	if !user.Active {
		return nil, fmt.Errorf("%w: account disabled", ErrInsufficientPermission)
	}
	result := e.Evaluate(ctx, perm, nil)
	if !result.Granted {
		return nil, fmt.Errorf("%w: %s requires %s", ErrInsufficientPermission, user.ID, perm)
	}
	return user, nil
}

// fillContext returns a filled copy and never writes to the caller's
// context: EvaluateMany workers share one PermissionContext, so an
// in-place write would race.
func (e *Engine) fillContext(pctx *PermissionContext, userID string) *PermissionContext {
	var filled PermissionContext
	if pctx != nil {
		filled = *pctx
	}
	if filled.UserID == "" {
		filled.UserID = userID
	}
	if filled.CreatedAt.IsZero() {
		filled.CreatedAt = e.now()
	}
	return &filled
}

func (e *Engine) deniedResult(perm Permission, pctx *PermissionContext, reason string) *PermissionResult {
	return &PermissionResult{
		Permission:  perm.String(),
		Granted:     false,
		Reason:      reason,
		Context:     pctx,
		EvaluatedAt: e.now(),
	}
}

// recordEvaluation emits the per-evaluation audit event and metrics.
func (e *Engine) recordEvaluation(ctx context.Context, userID string, result *PermissionResult) {
	outcome := "denied"
	status := audit.StatusDenied
	event := audit.EventAccessDenied
	if result.Granted {
		outcome = "granted"
		status = audit.StatusSuccess
		event = audit.EventPermissionCheck
	}
	if e.metrics != nil {
		e.metrics.EvaluationsTotal.WithLabelValues(outcome).Inc()
	}

	details := map[string]string{
		"permission": result.Permission,
		"granted":    fmt.Sprintf("%t", result.Granted),
		"reason":     result.Reason,
	}
	var resourceID string
	if result.Context != nil && result.Context.TargetID != "" {
		resourceID = result.Context.TargetID
		details["target_type"] = result.Context.TargetType
	}
	e.emitAudit(ctx, &audit.SecurityEvent{
		Event:      event,
		Status:     status,
		UserID:     userID,
		ResourceID: resourceID,
		Message:    result.Reason,
		Details:    details,
	})
}

// emitAudit writes a security event best-effort. A failed audit write
// never fails or rolls back the decision it describes; failures are
// counted for operators instead.
func (e *Engine) emitAudit(ctx context.Context, event *audit.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	if err := e.audit.Log(ctx, event); err != nil {
		if e.metrics != nil {
			e.metrics.AuditWriteFailuresTotal.Inc()
		}
		e.logger.WithError(err).Warn("audit write failed")
	}
}
