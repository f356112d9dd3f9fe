package rbac

import (
	"sort"
)

// CatalogEntry describes one permission in the static catalog.
type CatalogEntry struct {
	Permission Permission `json:"permission"`
	Label      string     `json:"label"`
	Category   Category   `json:"category"`
}

// catalog is the closed set of permissions. Permissions never change at
// runtime; every permission belongs to exactly one category.
var catalog = []CatalogEntry{
	{Permission{ResourceCustomer, ActionView}, "View customers", CategoryCustomers},
	{Permission{ResourceCustomer, ActionCreate}, "Add customer", CategoryCustomers},
	{Permission{ResourceCustomer, ActionUpdate}, "Edit customer", CategoryCustomers},
	{Permission{ResourceCustomer, ActionDelete}, "Delete customer", CategoryCustomers},

	{Permission{ResourceBatch, ActionView}, "View production batches", CategoryProduction},
	{Permission{ResourceBatch, ActionCreate}, "Create batch", CategoryProduction},
	{Permission{ResourceBatch, ActionUpdate}, "Edit batch", CategoryProduction},
	{Permission{ResourceBatch, ActionApprove}, "Approve batch", CategoryProduction},
	{Permission{ResourceBatch, ActionDelete}, "Delete batch", CategoryProduction},
	{Permission{ResourceBatch, ActionExport}, "Export batch data", CategoryProduction},

	{Permission{ResourceMachine, ActionView}, "View machines", CategoryMachines},
	{Permission{ResourceMachine, ActionOperate}, "Operate machine", CategoryMachines},
	{Permission{ResourceMachine, ActionConfigure}, "Configure machine", CategoryMachines},

	{Permission{ResourceInventory, ActionView}, "View inventory", CategoryInventory},
	{Permission{ResourceInventory, ActionAdjust}, "Adjust inventory", CategoryInventory},
	{Permission{ResourceInventory, ActionExport}, "Export inventory data", CategoryInventory},

	{Permission{ResourceUser, ActionView}, "View users", CategoryAdministration},
	{Permission{ResourceUser, ActionManage}, "Manage users", CategoryAdministration},
	{Permission{ResourceRole, ActionManage}, "Manage roles", CategoryAdministration},
	{Permission{ResourcePermission, ActionManage}, "Manage permissions", CategoryAdministration},
	{Permission{ResourceAuditLog, ActionView}, "View audit log", CategoryAdministration},
	{Permission{ResourceSystem, ActionConfigure}, "Configure system", CategoryAdministration},
}

// Permissions used to gate the engine's own mutating operations.
var (
	PermManageRoles       = Permission{ResourceRole, ActionManage}
	PermManagePermissions = Permission{ResourcePermission, ActionManage}
)

// Catalog returns all catalog entries sorted by permission key.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Permission.String() < out[j].Permission.String()
	})
	return out
}

// LookupPermission finds the catalog entry for a permission.
func LookupPermission(perm Permission) (CatalogEntry, bool) {
	for _, entry := range catalog {
		if entry.Permission == perm {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}

// PermissionsByCategory groups the catalog by category, each group
// sorted by permission key.
func PermissionsByCategory() map[Category][]Permission {
	grouped := make(map[Category][]Permission)
	for _, entry := range catalog {
		grouped[entry.Category] = append(grouped[entry.Category], entry.Permission)
	}
	for _, perms := range grouped {
		sort.Slice(perms, func(i, j int) bool {
			return perms[i].String() < perms[j].String()
		})
	}
	return grouped
}

// BuiltInRoleDefinitions returns the seed role definitions for the
// manufacturing domain. Administrator inherits supervisor, supervisor
// inherits technician, technician inherits operator.
func BuiltInRoleDefinitions() map[Role]*RoleDefinition {
	return map[Role]*RoleDefinition{
		RoleUnauthorized: {
			Role:        RoleUnauthorized,
			DisplayName: "Unauthorized",
			Description: "No access granted",
			Level:       0,
		},
		RoleOperator: {
			Role:        RoleOperator,
			DisplayName: "Operator",
			Description: "Runs machines and records production",
			Level:       1,
			Permissions: []Permission{
				{ResourceBatch, ActionView},
				{ResourceMachine, ActionView},
				{ResourceMachine, ActionOperate},
				{ResourceInventory, ActionView},
			},
		},
		RoleTechnician: {
			Role:        RoleTechnician,
			DisplayName: "Technician",
			Description: "Maintains machines and manages batches",
			Level:       2,
			Inherits:    []Role{RoleOperator},
			Permissions: []Permission{
				{ResourceBatch, ActionCreate},
				{ResourceBatch, ActionUpdate},
				{ResourceMachine, ActionConfigure},
				{ResourceInventory, ActionAdjust},
			},
		},
		RoleSupervisor: {
			Role:        RoleSupervisor,
			DisplayName: "Supervisor",
			Description: "Approves batches and manages customers",
			Level:       3,
			Inherits:    []Role{RoleTechnician},
			Permissions: []Permission{
				{ResourceBatch, ActionApprove},
				{ResourceBatch, ActionExport},
				{ResourceCustomer, ActionView},
				{ResourceCustomer, ActionCreate},
				{ResourceCustomer, ActionUpdate},
				{ResourceInventory, ActionExport},
				{ResourceUser, ActionView},
			},
		},
		RoleAdministrator: {
			Role:        RoleAdministrator,
			DisplayName: "Administrator",
			Description: "Full access including user and role management",
			Level:       4,
			Inherits:    []Role{RoleSupervisor},
			Permissions: []Permission{
				{ResourceCustomer, ActionDelete},
				{ResourceBatch, ActionDelete},
				{ResourceUser, ActionManage},
				{ResourceRole, ActionManage},
				{ResourcePermission, ActionManage},
				{ResourceAuditLog, ActionView},
				{ResourceSystem, ActionConfigure},
			},
		},
	}
}
