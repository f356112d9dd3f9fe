package rbac

import (
	"sort"
)

// Hierarchy resolves role inheritance over a map of role definitions.
// The definition map is the adjacency list; traversal carries a visited
// set so cyclic or self-referential graphs terminate. A cycle stops
// descent and is never an error: the partial union already collected is
// returned.
type Hierarchy struct {
	defs map[Role]*RoleDefinition
}

// NewHierarchy creates a resolver over the given definitions.
func NewHierarchy(defs map[Role]*RoleDefinition) *Hierarchy {
	if defs == nil {
		defs = make(map[Role]*RoleDefinition)
	}
	return &Hierarchy{defs: defs}
}

// Definition returns the definition for a role, or nil if unknown.
func (h *Hierarchy) Definition(role Role) *RoleDefinition {
	return h.defs[role]
}

// Definitions returns all role definitions sorted by level ascending.
func (h *Hierarchy) Definitions() []*RoleDefinition {
	out := make([]*RoleDefinition, 0, len(h.defs))
	for _, def := range h.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Role < out[j].Role
	})
	return out
}

// Closure returns the transitive permission set of a role: its own base
// permissions plus those of every role it inherits from, recursively.
// An unknown role yields an empty set.
func (h *Hierarchy) Closure(role Role) map[string]Permission {
	closure := make(map[string]Permission)
	h.walk(role, func(def *RoleDefinition) {
		for _, perm := range def.Permissions {
			closure[perm.String()] = perm
		}
	})
	return closure
}

// HasPermission reports whether the transitive closure of role contains
// the permission.
func (h *Hierarchy) HasPermission(role Role, perm Permission) bool {
	key := perm.String()
	found := false
	h.walk(role, func(def *RoleDefinition) {
		if found {
			return
		}
		for _, p := range def.Permissions {
			if p.String() == key {
				found = true
				return
			}
		}
	})
	return found
}

// Path returns the role itself plus every transitively inherited role,
// sorted ascending by hierarchy level. Unknown roles yield nil.
func (h *Hierarchy) Path(role Role) []Role {
	var path []*RoleDefinition
	h.walk(role, func(def *RoleDefinition) {
		path = append(path, def)
	})
	sort.Slice(path, func(i, j int) bool {
		if path[i].Level != path[j].Level {
			return path[i].Level < path[j].Level
		}
		return path[i].Role < path[j].Role
	})
	roles := make([]Role, 0, len(path))
	for _, def := range path {
		roles = append(roles, def.Role)
	}
	return roles
}

// walk visits the definition of role and of every transitively
// inherited role exactly once, iteratively with an explicit stack.
func (h *Hierarchy) walk(role Role, visit func(*RoleDefinition)) {
	visited := make(map[Role]bool)
	stack := []Role{role}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[current] {
			continue
		}
		visited[current] = true

		def, ok := h.defs[current]
		if !ok {
			continue
		}
		visit(def)

		for _, parent := range def.Inherits {
			if !visited[parent] {
				stack = append(stack, parent)
			}
		}
	}
}
