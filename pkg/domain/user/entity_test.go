package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/domain/role"
)

func TestNew(t *testing.T) {
	u := New("  Ada@Example.COM ", "Ada", "Lovelace")

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, role.User, u.RoleName)
	assert.Equal(t, StatusActive, u.Status)
	assert.True(t, u.IsActive())
	assert.NotNil(t, u.OwnedResources)
	assert.NotNil(t, u.SharedResources)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestUser_Role_DefaultsToBaseRole(t *testing.T) {
	u := &User{}
	assert.Equal(t, role.User, u.Role())

	u.RoleName = role.Pro
	assert.Equal(t, role.Pro, u.Role())
}

func TestUser_FullName(t *testing.T) {
	u := &User{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada Lovelace", u.FullName())

	u = &User{FirstName: "Ada"}
	assert.Equal(t, "Ada", u.FullName())

	u = &User{}
	assert.Equal(t, "", u.FullName())
}

func TestResourceMap(t *testing.T) {
	m := ResourceMap{}

	assert.False(t, m.Contains("project", "p1"))
	assert.Equal(t, 0, m.Count("project"))

	require.True(t, m.Add("project", "p1"))
	assert.True(t, m.Contains("project", "p1"))
	assert.Equal(t, 1, m.Count("project"))

	// Duplicate adds do not grow the list.
	assert.False(t, m.Add("project", "p1"))
	assert.Equal(t, 1, m.Count("project"))

	require.True(t, m.Add("project", "p2"))
	require.True(t, m.Add("plan", "p1"))
	assert.Equal(t, 2, m.Count("project"))
	assert.Equal(t, 1, m.Count("plan"))
	assert.False(t, m.Contains("plan", "p2"))
}

func TestUser_OrganizationDomain(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"ada@corp.example.com", "example.com"},
		{"ada@example.co.uk", "example.co.uk"},
		{"ada@mail.internal.example.co.uk", "example.co.uk"},
		{"not-an-email", ""},
		{"trailing@", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			u := &User{Email: tt.email}
			assert.Equal(t, tt.want, u.OrganizationDomain())
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Ada", "Ada"},
		{"trims whitespace", "  Ada  ", "Ada"},
		{"strips accents", "Zoë", "Zoe"},
		{"strips control characters", "Ada\x00\x1fLovelace", "AdaLovelace"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input))
		})
	}
}
