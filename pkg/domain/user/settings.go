package user

import "time"

// Settings is the user's settings document, stored as JSONB on the record.
// Handlers read and write whole named sections; DefaultSettings supplies the
// document for records that have never been written.
type Settings struct {
	Account       AccountSettings      `json:"account"`
	Security      SecuritySettings     `json:"security"`
	Subscription  SubscriptionSettings `json:"subscription"`
	Features      FeatureSettings      `json:"features"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
}

// AccountSettings holds locale and identity display settings.
type AccountSettings struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	Timezone      string `json:"timezone"`
	Language      string `json:"language"`
	DateFormat    string `json:"dateFormat"`
	TimeFormat    string `json:"timeFormat"` // 12h or 24h
}

// SecuritySettings holds authentication hardening settings.
type SecuritySettings struct {
	MFAEnabled            bool       `json:"mfaEnabled"`
	MFAMethod             string     `json:"mfaMethod"` // none, totp, sms
	PasswordLastChanged   *time.Time `json:"passwordLastChanged"`
	RequirePasswordChange bool       `json:"requirePasswordChange"`
	LoginNotifications    bool       `json:"loginNotifications"`
	TrustedDevices        []string   `json:"trustedDevices"`
}

// SubscriptionSettings holds billing plan state.
type SubscriptionSettings struct {
	Plan               string     `json:"plan"`         // free, pro, team, enterprise
	BillingCycle       string     `json:"billingCycle"` // monthly, yearly
	AutoRenew          bool       `json:"autoRenew"`
	TrialEndsAt        *time.Time `json:"trialEndsAt"`
	SubscriptionEndsAt *time.Time `json:"subscriptionEndsAt"`
}

// FeatureSettings holds per-account feature flags. Protected flags may only
// be toggled by administrators.
type FeatureSettings struct {
	AdvancedPlanning bool `json:"advancedPlanning"`
	CodeGeneration   bool `json:"codeGeneration"`
	CustomDomains    bool `json:"customDomains"`
	APIAccess        bool `json:"apiAccess"`
	PrioritySupport  bool `json:"prioritySupport"`

	Integrations map[string]bool `json:"integrations"`
}

// NotificationSettings holds delivery channels and digest cadence.
type NotificationSettings struct {
	Channels        map[string]bool `json:"channels"`
	DigestFrequency string          `json:"digestFrequency"` // daily, weekly, none
	DigestDay       int             `json:"digestDay"`       // 1-7, Monday = 1
	QuietHours      QuietHours      `json:"quietHours"`
}

// QuietHours suppresses notifications during a daily window.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// PrivacySettings holds data sharing and visibility switches.
type PrivacySettings struct {
	ShareUsageData        bool `json:"shareUsageData"`
	AllowFeedbackRequests bool `json:"allowFeedbackRequests"`
	ShowProfileToOthers   bool `json:"showProfileToOthers"`
	ActivityVisible       bool `json:"activityVisible"`
}

// Settings section names addressable through the API.
const (
	SectionAccount       = "account"
	SectionSecurity      = "security"
	SectionSubscription  = "subscription"
	SectionFeatures      = "features"
	SectionNotifications = "notifications"
	SectionPrivacy       = "privacy"
)

// SettingsSections returns the valid section names in a fixed order.
func SettingsSections() []string {
	return []string{
		SectionAccount,
		SectionSecurity,
		SectionSubscription,
		SectionFeatures,
		SectionNotifications,
		SectionPrivacy,
	}
}

// ProtectedFeatures are feature flags only administrators may toggle.
func ProtectedFeatures() []string {
	return []string{"customDomains", "apiAccess", "prioritySupport"}
}

// DefaultSettings builds the default settings document for an account.
// A fresh value is constructed per call.
func DefaultSettings(email string) *Settings {
	return &Settings{
		Account: AccountSettings{
			Email:      email,
			Timezone:   "UTC",
			Language:   "en-US",
			DateFormat: "MM/DD/YYYY",
			TimeFormat: "12h",
		},
		Security: SecuritySettings{
			MFAMethod:          "none",
			LoginNotifications: true,
			TrustedDevices:     []string{},
		},
		Subscription: SubscriptionSettings{
			Plan:         "free",
			BillingCycle: "monthly",
			AutoRenew:    true,
		},
		Features: FeatureSettings{
			Integrations: map[string]bool{
				"github": false,
				"jira":   false,
				"trello": false,
				"asana":  false,
			},
		},
		Notifications: NotificationSettings{
			Channels: map[string]bool{
				"email":   true,
				"browser": true,
				"mobile":  false,
			},
			DigestFrequency: "daily",
			DigestDay:       1,
			QuietHours: QuietHours{
				Start: "22:00",
				End:   "08:00",
			},
		},
		Privacy: PrivacySettings{
			ShareUsageData:        true,
			AllowFeedbackRequests: true,
			ShowProfileToOthers:   true,
			ActivityVisible:       true,
		},
	}
}

// Section returns the named settings section, or nil when the name is not a
// valid section.
func (s *Settings) Section(name string) any {
	switch name {
	case SectionAccount:
		return s.Account
	case SectionSecurity:
		return s.Security
	case SectionSubscription:
		return s.Subscription
	case SectionFeatures:
		return s.Features
	case SectionNotifications:
		return s.Notifications
	case SectionPrivacy:
		return s.Privacy
	}
	return nil
}
