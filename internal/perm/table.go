package perm

// Deployment role names.
const (
	RoleSuperAdmin      = "SUPER_ADMIN"
	RoleAdmin           = "Admin"
	RoleProjectManager  = "ProjectManager"
	RolePurchaseOfficer = "PurchaseOfficer"
	RoleSiteEngineer    = "SiteEngineer"
	RoleApprover        = "Approver"
	RoleViewer          = "Viewer"
)

// DefaultRoles returns the role set for a deployment. SUPER_ADMIN carries
// the universal grant and never appears in the table itself.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleSuperAdmin, Description: "Full access to every module", Wildcard: true},
		{Name: RoleAdmin, Description: "Platform administration"},
		{Name: RoleProjectManager, Description: "Project planning and estimates"},
		{Name: RolePurchaseOfficer, Description: "Procurement documents"},
		{Name: RoleSiteEngineer, Description: "Site requisitions and progress"},
		{Name: RoleApprover, Description: "Approval gate across business modules"},
		{Name: RoleViewer, Description: "Read-only access"},
	}
}

// DefaultTable returns the permission table for a deployment. The table is
// immutable after engine construction; declaration order is the order
// RolePermissions reports, so grouping below is deliberate.
func DefaultTable() []Grant {
	all := []string{RoleAdmin, RoleProjectManager, RolePurchaseOfficer, RoleSiteEngineer, RoleApprover, RoleViewer}
	return []Grant{
		{Key: Key{ModuleEngineering, ActionView}, Roles: all},
		{Key: Key{ModuleEngineering, ActionCreate}, Roles: []string{RoleAdmin, RoleProjectManager}},
		{Key: Key{ModuleEngineering, ActionEdit}, Roles: []string{RoleAdmin, RoleProjectManager}},
		{Key: Key{ModuleEngineering, ActionDelete}, Roles: []string{RoleAdmin}},
		{Key: Key{ModuleEngineering, ActionApprove}, Roles: []string{RoleAdmin, RoleApprover}},

		{Key: Key{ModulePurchase, ActionView}, Roles: all},
		{Key: Key{ModulePurchase, ActionCreate}, Roles: []string{RoleAdmin, RolePurchaseOfficer}},
		{Key: Key{ModulePurchase, ActionEdit}, Roles: []string{RoleAdmin, RolePurchaseOfficer}},
		{Key: Key{ModulePurchase, ActionDelete}, Roles: []string{RoleAdmin}},
		{Key: Key{ModulePurchase, ActionApprove}, Roles: []string{RoleAdmin, RoleApprover}},

		{Key: Key{ModuleContracts, ActionView}, Roles: all},
		{Key: Key{ModuleContracts, ActionCreate}, Roles: []string{RoleAdmin, RoleProjectManager}},
		{Key: Key{ModuleContracts, ActionEdit}, Roles: []string{RoleAdmin, RoleProjectManager}},
		{Key: Key{ModuleContracts, ActionApprove}, Roles: []string{RoleAdmin, RoleApprover}},

		{Key: Key{ModuleSite, ActionView}, Roles: all},
		{Key: Key{ModuleSite, ActionCreate}, Roles: []string{RoleAdmin, RoleSiteEngineer, RoleProjectManager}},
		{Key: Key{ModuleSite, ActionEdit}, Roles: []string{RoleAdmin, RoleSiteEngineer, RoleProjectManager}},
		{Key: Key{ModuleSite, ActionApprove}, Roles: []string{RoleAdmin, RoleApprover, RoleProjectManager}},

		{Key: Key{ModuleAccounts, ActionView}, Roles: []string{RoleAdmin, RoleProjectManager, RoleApprover, RoleViewer}},
		{Key: Key{ModuleAccounts, ActionCreate}, Roles: []string{RoleAdmin}},
		{Key: Key{ModuleAccounts, ActionEdit}, Roles: []string{RoleAdmin}},
		{Key: Key{ModuleAccounts, ActionApprove}, Roles: []string{RoleAdmin, RoleApprover}},

		{Key: Key{ModuleWorkflow, ActionView}, Roles: all},
		{Key: Key{ModuleWorkflow, ActionManage}, Roles: []string{RoleAdmin}},

		{Key: Key{ModuleAdmin, ActionView}, Roles: []string{RoleAdmin}},
		{Key: Key{ModuleAdmin, ActionManage}, Roles: []string{RoleAdmin}},
	}
}
