package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		name     string
		held     Permission
		required Permission
		want     bool
	}{
		{"exact match", "project:read:own", "project:read:own", true},
		{"exact match no scope", "project:create", "project:create", true},
		{"different action", "project:read:own", "project:update:own", false},
		{"different scope", "project:read:own", "project:read:shared", false},
		{"resource wildcard same resource", "project:*", "project:read:own", true},
		{"resource wildcard any action", "project:*", "project:delete:shared", true},
		{"resource wildcard bare action", "project:*", "project:create", true},
		{"resource wildcard other resource", "project:*", "plan:read:own", false},
		{"full wildcard", "*", "anything:at:all", true},
		{"full wildcard bare", "*", "project:create", true},
		{"no wildcard no match", "plan:read:own", "project:read:own", false},
		{"required broader than held", "project:read:own", "project:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.held.Matches(tt.required))
		})
	}
}

func TestPermission_Parts(t *testing.T) {
	resource, action, scope := Permission("project:read:own").Parts()
	assert.Equal(t, "project", resource)
	assert.Equal(t, "read", action)
	assert.Equal(t, "own", scope)

	resource, action, scope = Permission("project:create").Parts()
	assert.Equal(t, "project", resource)
	assert.Equal(t, "create", action)
	assert.Empty(t, scope)

	resource, action, scope = Permission("admin:full").Parts()
	assert.Equal(t, "admin", resource)
	assert.Equal(t, "full", action)
	assert.Empty(t, scope)
}

func TestPermission_Scoped(t *testing.T) {
	assert.Equal(t, Permission("project:read:own"), Permission("project:read").Scoped(ScopeOwn))
	assert.Equal(t, Permission("project:read:shared"), Permission("project:read:own").Scoped(ScopeShared))
}

func TestSet_Has(t *testing.T) {
	s := NewSet("project:read:own", "user:*", "plan:create:own")

	assert.True(t, s.Has("project:read:own"))
	assert.True(t, s.Has("user:update:self"), "user:* should cover any user permission")
	assert.False(t, s.Has("billing:view"))
	assert.False(t, s.Has("plan:read:own"))
}

func TestSet_Deduplicates(t *testing.T) {
	s := NewSet("a:b", "a:b", "c:d")
	assert.Len(t, s.List(), 2)

	s.Add("a:b")
	assert.Len(t, s.List(), 2)

	other := NewSet("a:b", "e:f")
	s.AddAll(other)
	assert.Len(t, s.List(), 3)
}
