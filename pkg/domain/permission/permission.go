// Package permission defines permission strings and pattern matching for
// role-based authorization.
//
// Permission naming convention follows a colon-delimited pattern:
//
//	{resource}:{action}[:{scope}]
//
// Examples:
//   - project:read:own (read projects the user owns)
//   - user:update:self (update the user's own account)
//   - plan:create:own (create plans on owned projects)
//
// A permission may end in a wildcard segment, granting every action on the
// resource:
//
//	project:*
//
// The single permission "*" grants everything.
package permission

import "strings"

// Wildcard matches any permission.
const Wildcard = "*"

// Scope qualifiers narrowing a permission to resources related to the acting
// user in a specific way.
const (
	ScopeSelf   = "self"
	ScopeOwn    = "own"
	ScopeShared = "shared"
	ScopeTeam   = "team"
)

// Permission represents a single permission string.
type Permission string

// String returns the string representation of the permission.
func (p Permission) String() string {
	return string(p)
}

// Resource returns the resource segment (text before the first colon).
func (p Permission) Resource() string {
	s := string(p)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

// Parts splits the permission into resource, action, and scope segments.
// Missing segments are returned as empty strings.
func (p Permission) Parts() (resource, action, scope string) {
	segs := strings.SplitN(string(p), ":", 3)
	resource = segs[0]
	if len(segs) > 1 {
		action = segs[1]
	}
	if len(segs) > 2 {
		scope = segs[2]
	}
	return resource, action, scope
}

// Scoped returns a copy of the permission with the given scope segment.
// The existing scope segment, if any, is replaced.
func (p Permission) Scoped(scope string) Permission {
	resource, action, _ := p.Parts()
	return Permission(resource + ":" + action + ":" + scope)
}

// IsWildcard reports whether the permission is the full wildcard "*".
func (p Permission) IsWildcard() bool {
	return string(p) == Wildcard
}

// Matches reports whether this held permission satisfies the required one.
//
// Matching rules, in order:
//   - exact string equality
//   - the full wildcard "*" matches anything
//   - a trailing ":*" matches any required permission on the same resource;
//     only the resource segment is compared, so "project:*" satisfies
//     "project:read:own" regardless of action or scope
func (p Permission) Matches(required Permission) bool {
	if p == required {
		return true
	}
	if p.IsWildcard() {
		return true
	}
	if strings.HasSuffix(string(p), ":"+Wildcard) {
		return p.Resource() == required.Resource()
	}
	return false
}

// Set is a deduplicated collection of permissions.
type Set map[Permission]struct{}

// NewSet creates a Set from the given permissions.
func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts a permission into the set.
func (s Set) Add(p Permission) {
	s[p] = struct{}{}
}

// AddAll inserts every permission from other into the set.
func (s Set) AddAll(other Set) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Has reports whether at least one member of the set matches required.
func (s Set) Has(required Permission) bool {
	for p := range s {
		if p.Matches(required) {
			return true
		}
	}
	return false
}

// List returns the members of the set as a slice. Order is unspecified.
func (s Set) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// Strings returns the members of the set as strings. Order is unspecified.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	return out
}
