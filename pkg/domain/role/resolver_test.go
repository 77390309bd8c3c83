package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/domain/permission"
)

func TestResolver_Resolve_InheritanceUnion(t *testing.T) {
	r := NewResolver(nil)

	// Each role in the chain must carry everything its parent carries.
	chains := []struct{ child, parent string }{
		{Pro, User},
		{Team, Pro},
		{TeamAdmin, Team},
	}

	for _, c := range chains {
		child := r.Resolve(c.child)
		parent := r.Resolve(c.parent)
		require.NotEmpty(t, parent)

		for p := range parent {
			assert.Contains(t, child, p, "%s should inherit %s from %s", c.child, p, c.parent)
		}
		assert.Greater(t, len(child), len(parent), "%s should add permissions beyond %s", c.child, c.parent)
	}
}

func TestResolver_Resolve_Deduplicated(t *testing.T) {
	registry := Registry{
		"base": {Name: "base", Permissions: []permission.Permission{"doc:read", "doc:write"}},
		"editor": {
			Name:         "editor",
			InheritsFrom: "base",
			// doc:read repeats the parent's grant
			Permissions: []permission.Permission{"doc:read", "doc:publish"},
		},
	}
	r := NewResolver(registry)

	perms := r.Resolve("editor")
	assert.Len(t, perms.List(), 3)
	assert.True(t, perms.Has("doc:publish"))
	assert.True(t, perms.Has("doc:write"))
}

func TestResolver_Resolve_UnknownRole(t *testing.T) {
	r := NewResolver(nil)
	perms := r.Resolve("does-not-exist")
	assert.Empty(t, perms.List())
}

func TestResolver_Resolve_UnknownParentTerminates(t *testing.T) {
	registry := Registry{
		"orphan": {
			Name:         "orphan",
			InheritsFrom: "gone",
			Permissions:  []permission.Permission{"doc:read"},
		},
	}
	r := NewResolver(registry)

	perms := r.Resolve("orphan")
	assert.Len(t, perms.List(), 1)
	assert.True(t, perms.Has("doc:read"))
}

func TestResolver_Resolve_CycleGuard(t *testing.T) {
	registry := Registry{
		"a": {Name: "a", InheritsFrom: "b", Permissions: []permission.Permission{"x:a"}},
		"b": {Name: "b", InheritsFrom: "c", Permissions: []permission.Permission{"x:b"}},
		"c": {Name: "c", InheritsFrom: "a", Permissions: []permission.Permission{"x:c"}},
	}
	r := NewResolver(registry)

	// Must terminate and return everything accumulated along the cycle.
	perms := r.Resolve("a")
	assert.Len(t, perms.List(), 3)
}

func TestResolver_Resolve_SelfCycle(t *testing.T) {
	registry := Registry{
		"loop": {Name: "loop", InheritsFrom: "loop", Permissions: []permission.Permission{"x:y"}},
	}
	r := NewResolver(registry)

	perms := r.Resolve("loop")
	assert.Len(t, perms.List(), 1)
}

func TestResolver_HasPermission_Admin(t *testing.T) {
	r := NewResolver(nil)

	assert.True(t, r.HasPermission(Admin, "project:read:own"))
	assert.True(t, r.HasPermission(Admin, "billing:update"))
	assert.True(t, r.HasPermission(Admin, "user:delete:any"))
	assert.False(t, r.HasPermission(Admin, "unknown:resource"))
}

func TestResolver_HasPermission_BaseUser(t *testing.T) {
	r := NewResolver(nil)

	assert.True(t, r.HasPermission(User, "project:read:own"))
	assert.True(t, r.HasPermission(User, "user:update:self"))
	assert.False(t, r.HasPermission(User, "project:read:shared"))
	assert.False(t, r.HasPermission(User, "team:manage"))

	// Inherited up the chain
	assert.True(t, r.HasPermission(Team, "project:read:shared"))
	assert.True(t, r.HasPermission(Team, "project:read:own"))
	assert.True(t, r.HasPermission(TeamAdmin, "team:manage"))
	assert.True(t, r.HasPermission(TeamAdmin, "api:access"))
}

func TestResolver_Limits(t *testing.T) {
	r := NewResolver(nil)

	assert.Equal(t, 5, r.Limits(User).MaxProjects)
	assert.Equal(t, 20, r.Limits(Pro).MaxProjects)
	assert.Equal(t, Unlimited, r.Limits(Admin).MaxProjects)
	assert.True(t, r.Limits(Admin).IsUnlimitedProjects())

	// Unknown role falls back to base user limits.
	assert.Equal(t, r.Limits(User), r.Limits("nope"))
}

func TestLimits_AllowsProjects(t *testing.T) {
	l := Limits{MaxProjects: 5}
	assert.True(t, l.AllowsProjects(5))
	assert.False(t, l.AllowsProjects(6))

	unlimited := Limits{MaxProjects: Unlimited}
	assert.True(t, unlimited.AllowsProjects(10000))
}

func TestBuiltin_FreshPerCall(t *testing.T) {
	a := Builtin()
	a[User].Permissions = nil

	b := Builtin()
	assert.NotEmpty(t, b[User].Permissions, "mutating one registry must not affect later ones")
}
