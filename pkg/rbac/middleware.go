package rbac

import (
	"net/http"
)

// PermissionMiddleware gates HTTP handlers on a permission check, the
// server-side analogue of a permission-gated view: wrap the content,
// serve a denial to callers the engine does not grant.
type PermissionMiddleware struct {
	engine *Engine
}

// NewPermissionMiddleware creates middleware over an engine.
func NewPermissionMiddleware(engine *Engine) *PermissionMiddleware {
	return &PermissionMiddleware{engine: engine}
}

// Require wraps next so it only runs when the current user holds the
// permission. Consumers see the grant outcome and reason, never the
// internal error taxonomy.
func (pm *PermissionMiddleware) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	perm := Permission{Resource: resource, Action: action}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := pm.engine.Evaluate(r.Context(), perm, nil)
			if !result.Granted {
				status := http.StatusForbidden
				if result.Reason == ReasonNotAuthenticated {
					status = http.StatusUnauthorized
				}
				writeJSON(w, status, map[string]interface{}{
					"granted": false,
					"reason":  result.Reason,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
