package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("ada@example.com")

	assert.Equal(t, "ada@example.com", s.Account.Email)
	assert.Equal(t, "UTC", s.Account.Timezone)
	assert.Equal(t, "free", s.Subscription.Plan)
	assert.True(t, s.Subscription.AutoRenew)
	assert.Equal(t, "none", s.Security.MFAMethod)
	assert.True(t, s.Security.LoginNotifications)
	assert.False(t, s.Features.CustomDomains)
	assert.Contains(t, s.Features.Integrations, "github")
	assert.True(t, s.Notifications.Channels["email"])
	assert.Equal(t, "daily", s.Notifications.DigestFrequency)
}

func TestDefaultSettings_FreshPerCall(t *testing.T) {
	a := DefaultSettings("a@example.com")
	b := DefaultSettings("b@example.com")

	a.Features.Integrations["github"] = true
	a.Notifications.Channels["email"] = false

	assert.False(t, b.Features.Integrations["github"])
	assert.True(t, b.Notifications.Channels["email"])
}

func TestSettings_Section(t *testing.T) {
	s := DefaultSettings("ada@example.com")

	for _, name := range SettingsSections() {
		assert.NotNil(t, s.Section(name), "section %s", name)
	}

	account, ok := s.Section(SectionAccount).(AccountSettings)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", account.Email)

	assert.Nil(t, s.Section("billing"))
	assert.Nil(t, s.Section(""))
}

func TestProtectedFeatures(t *testing.T) {
	protected := ProtectedFeatures()
	assert.ElementsMatch(t, []string{"customDomains", "apiAccess", "prioritySupport"}, protected)
}
