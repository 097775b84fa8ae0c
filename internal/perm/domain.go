// Package perm implements the static permission table and the engine that
// evaluates role capabilities against it.
package perm

// Module is a functional business area, the first axis of a permission key.
type Module string

// Known modules.
const (
	ModuleEngineering Module = "ENGINEERING"
	ModulePurchase    Module = "PURCHASE"
	ModuleContracts   Module = "CONTRACTS"
	ModuleSite        Module = "SITE"
	ModuleAccounts    Module = "ACCOUNTS"
	ModuleWorkflow    Module = "WORKFLOW"
	ModuleAdmin       Module = "ADMIN"
)

// Modules lists every known module.
func Modules() []Module {
	return []Module{
		ModuleEngineering,
		ModulePurchase,
		ModuleContracts,
		ModuleSite,
		ModuleAccounts,
		ModuleWorkflow,
		ModuleAdmin,
	}
}

// Valid reports whether the module is part of the closed enumeration.
func (m Module) Valid() bool {
	switch m {
	case ModuleEngineering, ModulePurchase, ModuleContracts, ModuleSite,
		ModuleAccounts, ModuleWorkflow, ModuleAdmin:
		return true
	}
	return false
}

// Action is an operation category, the second axis of a permission key.
type Action string

// Known actions.
const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
	ActionManage  Action = "manage"
)

// Actions lists every known action.
func Actions() []Action {
	return []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionApprove, ActionManage}
}

// Valid reports whether the action is part of the closed enumeration.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete, ActionApprove, ActionManage:
		return true
	}
	return false
}

// Key identifies a single permission as a (module, action) pair.
type Key struct {
	Module Module `json:"module"`
	Action Action `json:"action"`
}

// String renders the key in module.action form, e.g. "PURCHASE.approve".
func (k Key) String() string {
	return string(k.Module) + "." + string(k.Action)
}

// Role is a role record as seen by the engine. Wildcard marks the universal
// grant: the role is authorized for every (module, action) pair without a
// table lookup.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Wildcard    bool   `json:"wildcard"`
}

// Grant maps one permission key to the set of roles holding it.
type Grant struct {
	Key   Key
	Roles []string
}
