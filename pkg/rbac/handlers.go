package rbac

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Handlers provides HTTP handlers for the access engine.
type Handlers struct {
	engine *Engine
}

// NewHandlers creates handlers over an engine.
func NewHandlers(engine *Engine) *Handlers {
	return &Handlers{engine: engine}
}

// RegisterRoutes registers all access-control routes.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	// Evaluation
	router.HandleFunc("/access/check", h.Check).Methods("POST")
	router.HandleFunc("/access/check-batch", h.CheckBatch).Methods("POST")
	router.HandleFunc("/access/permissions", h.CurrentPermissions).Methods("GET")
	router.HandleFunc("/access/catalog", h.Catalog).Methods("GET")

	// Role definitions
	router.HandleFunc("/access/roles", h.Roles).Methods("GET")
	router.HandleFunc("/access/roles/{role}/permissions", h.GrantPermission).Methods("POST")
	router.HandleFunc("/access/roles/{role}/permissions/{resource}/{action}", h.RevokePermission).Methods("DELETE")
	router.HandleFunc("/access/roles/{role}/rules", h.AddRule).Methods("POST")

	// Assignments
	router.HandleFunc("/access/assignments", h.Assign).Methods("POST")
	router.HandleFunc("/access/users/{id}/roles/{role}", h.Revoke).Methods("DELETE")
	router.HandleFunc("/access/users/{id}/assignments", h.UserAssignments).Methods("GET")
	router.HandleFunc("/access/users/{id}/changelog", h.UserChangeLog).Methods("GET")

	// Elevation workflow
	router.HandleFunc("/access/elevations", h.RequestElevation).Methods("POST")
	router.HandleFunc("/access/elevations", h.ListElevations).Methods("GET")
	router.HandleFunc("/access/elevations/{id}/review", h.ReviewElevation).Methods("POST")
}

type checkRequest struct {
	Resource   Resource               `json:"resource"`
	Action     Action                 `json:"action"`
	TargetID   string                 `json:"target_id,omitempty"`
	TargetType string                 `json:"target_type,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

func (r checkRequest) permission() Permission {
	return Permission{Resource: r.Resource, Action: r.Action}
}

func (h *Handlers) buildContext(req checkRequest) (*PermissionContext, error) {
	pctx := &PermissionContext{
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
	}
	if len(req.Context) > 0 {
		pctx.Data = make(map[string]Value, len(req.Context))
		for key, raw := range req.Context {
			value, err := ValueOf(raw)
			if err != nil {
				return nil, err
			}
			pctx.Data[key] = value
		}
	}
	return pctx, nil
}

// Check evaluates a single permission for the current user.
func (h *Handlers) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pctx, err := h.buildContext(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.engine.Evaluate(r.Context(), req.permission(), pctx)
	writeJSON(w, http.StatusOK, result)
}

type checkBatchRequest struct {
	Permissions []struct {
		Resource Resource `json:"resource"`
		Action   Action   `json:"action"`
	} `json:"permissions"`
	TargetID   string                 `json:"target_id,omitempty"`
	TargetType string                 `json:"target_type,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// CheckBatch evaluates several permissions independently.
func (h *Handlers) CheckBatch(w http.ResponseWriter, r *http.Request) {
	var req checkBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	pctx, err := h.buildContext(checkRequest{
		TargetID:   req.TargetID,
		TargetType: req.TargetType,
		Context:    req.Context,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	perms := make([]Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, Permission{Resource: p.Resource, Action: p.Action})
	}

	results := h.engine.EvaluateMany(r.Context(), perms, pctx)
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// CurrentPermissions returns the current user's standing permissions.
func (h *Handlers) CurrentPermissions(w http.ResponseWriter, r *http.Request) {
	perms := h.engine.CurrentUserPermissions(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"permissions": perms})
}

// Catalog returns the permission catalog grouped by category.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"catalog":     Catalog(),
		"by_category": PermissionsByCategory(),
	})
}

// Roles lists all role definitions sorted by hierarchy level.
func (h *Handlers) Roles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"roles": h.engine.Definitions()})
}

// GrantPermission adds a permission to a role's base set.
func (h *Handlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	role := Role(mux.Vars(r)["role"])

	var req struct {
		Resource Resource `json:"resource"`
		Action   Action   `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm := Permission{Resource: req.Resource, Action: req.Action}
	if _, ok := LookupPermission(perm); !ok {
		writeError(w, http.StatusBadRequest, "unknown permission "+perm.String())
		return
	}

	if err := h.engine.GrantPermissionToRole(r.Context(), perm, role); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// RevokePermission removes a permission from a role's base set.
func (h *Handlers) RevokePermission(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	role := Role(vars["role"])
	perm := Permission{Resource: Resource(vars["resource"]), Action: Action(vars["action"])}

	if err := h.engine.RevokePermissionFromRole(r.Context(), perm, role); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// AddRule attaches a conditional rule to a role.
func (h *Handlers) AddRule(w http.ResponseWriter, r *http.Request) {
	role := Role(mux.Vars(r)["role"])

	var rule ConditionalRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := LookupPermission(rule.Permission); !ok {
		writeError(w, http.StatusBadRequest, "unknown permission "+rule.Permission.String())
		return
	}

	if err := h.engine.AddRule(r.Context(), role, rule); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// Assign grants a role to a user.
func (h *Handlers) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string     `json:"user_id"`
		Role      Role       `json:"role"`
		ExpiresAt *time.Time `json:"expires_at,omitempty"`
		Reason    string     `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "user_id and role are required")
		return
	}

	assignment, err := h.engine.AssignRole(r.Context(), req.Role, req.UserID, req.ExpiresAt, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

// Revoke revokes a role from a user.
func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	reason := r.URL.Query().Get("reason")

	if err := h.engine.RevokeRole(r.Context(), Role(vars["role"]), vars["id"], reason); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// UserAssignments lists a user's role assignments.
func (h *Handlers) UserAssignments(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]interface{}{"assignments": h.engine.Assignments(userID)})
}

// UserChangeLog lists a user's role change history.
func (h *Handlers) UserChangeLog(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	writeJSON(w, http.StatusOK, map[string]interface{}{"changes": h.engine.ChangeLog(userID)})
}

// RequestElevation files an elevation request for the current user.
func (h *Handlers) RequestElevation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role     Role   `json:"role"`
		Duration string `json:"duration"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	duration, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid duration")
		return
	}

	request, err := h.engine.RequestElevation(r.Context(), req.Role, duration, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

// ListElevations lists elevation requests.
func (h *Handlers) ListElevations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": h.engine.ElevationRequests()})
}

// ReviewElevation approves or rejects a pending elevation request.
func (h *Handlers) ReviewElevation(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["id"]

	var req struct {
		Approve bool   `json:"approve"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := h.engine.ReviewElevation(r.Context(), requestID, req.Approve, req.Notes)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeEngineError maps engine sentinel errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientPermission):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrSelfModification):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrDurationExceeded):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
