package perm

import "fmt"

// Engine answers authorization questions against an immutable permission
// table. It is a pure function of the table and its inputs, safe for
// unlimited concurrent callers.
type Engine struct {
	grants []Grant
	index  map[Key]map[string]struct{}
	roles  map[string]Role
}

// NewEngine validates the table against the closed module/action
// enumerations and the known role set. Unknown keys or roles are rejected
// here, at load time, rather than at call time.
func NewEngine(table []Grant, roles []Role) (*Engine, error) {
	roleSet := make(map[string]Role, len(roles))
	for _, role := range roles {
		if role.Name == "" {
			return nil, fmt.Errorf("perm: role with empty name")
		}
		if _, ok := roleSet[role.Name]; ok {
			return nil, fmt.Errorf("perm: duplicate role %q", role.Name)
		}
		roleSet[role.Name] = role
	}

	index := make(map[Key]map[string]struct{}, len(table))
	grants := make([]Grant, 0, len(table))
	for _, grant := range table {
		if !grant.Key.Module.Valid() {
			return nil, fmt.Errorf("perm: unknown module %q", grant.Key.Module)
		}
		if !grant.Key.Action.Valid() {
			return nil, fmt.Errorf("perm: unknown action %q", grant.Key.Action)
		}
		if _, ok := index[grant.Key]; ok {
			return nil, fmt.Errorf("perm: duplicate grant %s", grant.Key)
		}
		members := make(map[string]struct{}, len(grant.Roles))
		for _, name := range grant.Roles {
			role, ok := roleSet[name]
			if !ok {
				return nil, fmt.Errorf("perm: grant %s names unknown role %q", grant.Key, name)
			}
			if role.Wildcard {
				return nil, fmt.Errorf("perm: grant %s names wildcard role %q", grant.Key, name)
			}
			members[name] = struct{}{}
		}
		index[grant.Key] = members
		grants = append(grants, grant)
	}

	return &Engine{grants: grants, index: index, roles: roleSet}, nil
}

// NewDefaultEngine builds an engine over the deployment table and roles.
func NewDefaultEngine() (*Engine, error) {
	return NewEngine(DefaultTable(), DefaultRoles())
}

// IsAuthorized reports whether the role may perform action within module.
// Unknown roles have no permissions (fail closed). A wildcard role is
// authorized for every pair, bypassing table lookup.
func (e *Engine) IsAuthorized(role string, module Module, action Action) bool {
	record, ok := e.roles[role]
	if !ok {
		return false
	}
	if record.Wildcard {
		return true
	}
	members, ok := e.index[Key{Module: module, Action: action}]
	if !ok {
		return false
	}
	_, ok = members[role]
	return ok
}

// RolePermissions returns every key whose role set contains the role, in
// table declaration order. A wildcard role receives every declared key.
func (e *Engine) RolePermissions(role string) []Key {
	record, ok := e.roles[role]
	if !ok {
		return nil
	}
	keys := make([]Key, 0, len(e.grants))
	for _, grant := range e.grants {
		if record.Wildcard {
			keys = append(keys, grant.Key)
			continue
		}
		if _, ok := e.index[grant.Key][role]; ok {
			keys = append(keys, grant.Key)
		}
	}
	return keys
}

// Role returns the role record for a name.
func (e *Engine) Role(name string) (Role, bool) {
	role, ok := e.roles[name]
	return role, ok
}

// Convenience predicates used by UI-facing handlers.

// CanView reports view access to module.
func (e *Engine) CanView(role string, module Module) bool {
	return e.IsAuthorized(role, module, ActionView)
}

// CanCreate reports create access to module.
func (e *Engine) CanCreate(role string, module Module) bool {
	return e.IsAuthorized(role, module, ActionCreate)
}

// CanEdit reports edit access to module.
func (e *Engine) CanEdit(role string, module Module) bool {
	return e.IsAuthorized(role, module, ActionEdit)
}

// CanDelete reports delete access to module.
func (e *Engine) CanDelete(role string, module Module) bool {
	return e.IsAuthorized(role, module, ActionDelete)
}

// CanApprove reports approve access to module.
func (e *Engine) CanApprove(role string, module Module) bool {
	return e.IsAuthorized(role, module, ActionApprove)
}
