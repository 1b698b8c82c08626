// Package rbac maps named modules to the roles allowed to use them and
// checks a user against that table.
package rbac

import (
	"sort"

	"github.com/dmitrijs2005/flashboard/internal/server/models"
)

// Role names known to the system.
const (
	RoleAnonymous = "anonymous"
	RoleUser      = "user"
	RoleOperator  = "operator"
	RoleAdmin     = "admin"
)

// Module names guarded by the gate.
const (
	ModuleSys   = "sys"
	ModuleHome  = "home"
	ModuleAdmin = "admin"
)

// DefaultRoles is the role catalogue seeded at startup.
func DefaultRoles() []models.Role {
	return []models.Role{
		{Name: RoleAnonymous, Description: "Anonymous visitor"},
		{Name: RoleUser, Description: "Registered user"},
		{Name: RoleOperator, Description: "Operator with elevated permissions"},
		{Name: RoleAdmin, Description: "System administrator"},
	}
}

// DefaultControl is the module table used when none is configured.
func DefaultControl() map[string][]string {
	return map[string][]string{
		ModuleSys:   {RoleAnonymous, RoleUser, RoleOperator, RoleAdmin},
		ModuleHome:  {RoleUser, RoleOperator, RoleAdmin},
		ModuleAdmin: {RoleAdmin},
	}
}

// Policy is an immutable module to allowed-roles table.
type Policy struct {
	modules map[string][]string
}

// NewPolicy copies control into a Policy; later changes to control are not
// seen. Role lists are de-duplicated and sorted.
func NewPolicy(control map[string][]string) Policy {
	p := Policy{modules: make(map[string][]string, len(control))}
	for module, roles := range control {
		p.modules[module] = dedupe(roles)
	}
	return p
}

// RolesFor returns the sorted union of roles allowed for the modules.
// Unknown modules contribute nothing.
func (p Policy) RolesFor(modules ...string) []string {
	var all []string
	for _, m := range modules {
		all = append(all, p.modules[m]...)
	}
	return dedupe(all)
}

// Allows reports whether any of held is allowed for the modules.
func (p Policy) Allows(held []string, modules ...string) bool {
	allowed := p.RolesFor(modules...)
	for _, h := range held {
		i := sort.SearchStrings(allowed, h)
		if i < len(allowed) && allowed[i] == h {
			return true
		}
	}
	return false
}

// Modules lists the configured module names.
func (p Policy) Modules() []string {
	names := make([]string, 0, len(p.modules))
	for m := range p.modules {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
