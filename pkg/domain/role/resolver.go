package role

import "github.com/planforge/api/pkg/domain/permission"

// Resolver resolves effective permissions for roles, following inheritance
// chains over a registry of role definitions.
type Resolver struct {
	registry Registry
}

// NewResolver creates a Resolver over the given registry. A nil registry
// defaults to the built-in roles.
func NewResolver(registry Registry) *Resolver {
	if registry == nil {
		registry = Builtin()
	}
	return &Resolver{registry: registry}
}

// Resolve returns the effective permission set for a role: the union of the
// role's own permissions and those of every ancestor reachable through
// InheritsFrom, deduplicated.
//
// Unknown role names resolve to an empty set rather than an error. The walk
// keeps a visited set so a mis-declared cycle in the chain terminates with
// whatever was accumulated instead of recursing forever, and an unknown
// parent simply ends the chain.
func (r *Resolver) Resolve(roleName string) permission.Set {
	perms := permission.NewSet()
	visited := make(map[string]struct{})

	name := roleName
	for name != "" {
		if _, seen := visited[name]; seen {
			break
		}
		visited[name] = struct{}{}

		def := r.registry.Get(name)
		if def == nil {
			break
		}
		for _, p := range def.Permissions {
			perms.Add(p)
		}
		name = def.InheritsFrom
	}

	return perms
}

// HasPermission reports whether the role's resolved permission set satisfies
// the required permission.
func (r *Resolver) HasPermission(roleName string, required permission.Permission) bool {
	return r.Resolve(roleName).Has(required)
}

// Limits returns the usage limits for a role. Unknown roles fall back to the
// base user limits.
func (r *Resolver) Limits(roleName string) Limits {
	if def := r.registry.Get(roleName); def != nil {
		return def.Limits
	}
	if def := r.registry.Get(User); def != nil {
		return def.Limits
	}
	return Limits{}
}
