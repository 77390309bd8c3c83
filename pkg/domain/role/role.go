// Package role provides role definitions and permission resolution for
// role-based access control.
//
// Roles form a single-parent inheritance chain (user → pro → team →
// team_admin) rather than a general DAG. A role's effective permissions are
// the union of its own permissions and those of every ancestor in the chain.
package role

import "github.com/planforge/api/pkg/domain/permission"

// Built-in role names.
const (
	User      = "user"
	Pro       = "pro"
	Team      = "team"
	TeamAdmin = "team_admin"
	Admin     = "admin"
)

// Unlimited marks a limit with no cap.
const Unlimited = -1

// Limits holds the usage limits attached to a role.
type Limits struct {
	MaxProjects               int `json:"max_projects"`
	MaxCollaboratorsPerProject int `json:"max_collaborators_per_project"`
	MaxStorageGB              int `json:"max_storage_gb"`
}

// IsUnlimitedProjects reports whether the role has no project cap.
func (l Limits) IsUnlimitedProjects() bool {
	return l.MaxProjects == Unlimited
}

// AllowsProjects reports whether the role permits owning count projects.
func (l Limits) AllowsProjects(count int) bool {
	return l.IsUnlimitedProjects() || count <= l.MaxProjects
}

// Definition describes a named role: its permissions, usage limits, and an
// optional parent role it inherits from.
type Definition struct {
	Name        string
	Description string
	Permissions []permission.Permission
	// InheritsFrom names the parent role, empty for root roles. It is a
	// single-parent reference; resolution walks the chain with a cycle guard.
	InheritsFrom string
	Limits       Limits
}

// Registry is a lookup table of role definitions by name.
type Registry map[string]*Definition

// Get returns the definition for name, or nil if unknown.
func (r Registry) Get(name string) *Definition {
	return r[name]
}

// Exists reports whether the registry contains a role with this name.
func (r Registry) Exists(name string) bool {
	_, ok := r[name]
	return ok
}

// Names returns the registered role names. Order is unspecified.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
