// Package user provides the user account record and its persistence contract.
//
// The record is the single source of truth for a user's role, settings,
// embedded onboarding document, and resource ownership/sharing lists. The
// authorization and onboarding services operate on snapshots of this record
// and write results back through the repository.
package user

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
)

// Status represents the user account status.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ResourceMap maps a resource type (e.g. "project", "plan") to the ids of
// resources of that type related to the user.
type ResourceMap map[string][]string

// Contains reports whether the map holds the id under the resource type.
func (m ResourceMap) Contains(resourceType, resourceID string) bool {
	for _, id := range m[resourceType] {
		if id == resourceID {
			return true
		}
	}
	return false
}

// Add appends the id under the resource type if it is not already present.
// Returns true when the map changed.
func (m ResourceMap) Add(resourceType, resourceID string) bool {
	if m.Contains(resourceType, resourceID) {
		return false
	}
	m[resourceType] = append(m[resourceType], resourceID)
	return true
}

// Count returns the number of ids under the resource type.
func (m ResourceMap) Count(resourceType string) int {
	return len(m[resourceType])
}

// User represents a user account record.
type User struct {
	ID           shared.ID         `json:"id"`
	Email        string            `json:"email"`
	FirstName    string            `json:"firstName"`
	LastName     string            `json:"lastName"`
	RoleName     string            `json:"role"`
	Status       Status            `json:"status"`
	PasswordHash string            `json:"-"`
	Onboarding   *onboarding.State `json:"onboarding,omitempty"`
	Settings     *Settings         `json:"settings,omitempty"`

	// OwnedResources and SharedResources back resource-scoped permission
	// checks ("own" and "shared" scopes).
	OwnedResources  ResourceMap `json:"ownedResources"`
	SharedResources ResourceMap `json:"sharedResources"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// New creates a new active user record with the base role and empty resource
// maps.
func New(email, firstName, lastName string) *User {
	now := time.Now().UTC()
	return &User{
		ID:              shared.NewID(),
		Email:           strings.TrimSpace(strings.ToLower(email)),
		FirstName:       SanitizeName(firstName),
		LastName:        SanitizeName(lastName),
		RoleName:        role.User,
		Status:          StatusActive,
		OwnedResources:  ResourceMap{},
		SharedResources: ResourceMap{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Role returns the user's role name, defaulting to the base role when the
// record carries none.
func (u *User) Role() string {
	if u.RoleName == "" {
		return role.User
	}
	return u.RoleName
}

// FullName returns the user's display name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsActive reports whether the account can be used.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Touch updates the record's modification timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now().UTC()
}

// OrganizationDomain returns the registrable domain of the user's email
// address, used to group accounts belonging to the same organization.
// Returns an empty string for malformed addresses and public mail hosts
// whose registrable domain equals the public suffix.
func (u *User) OrganizationDomain() string {
	at := strings.LastIndexByte(u.Email, '@')
	if at < 0 || at == len(u.Email)-1 {
		return ""
	}
	host := u.Email[at+1:]
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return domain
}

// nameSanitizer strips non-printable runes and decomposed combining marks so
// display names compare and render consistently.
var nameSanitizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.In(unicode.C)),
	norm.NFC,
)

// SanitizeName normalizes a display-name field: unicode normalization,
// control-character removal, whitespace trim.
func SanitizeName(s string) string {
	out, _, err := transform.String(nameSanitizer, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
