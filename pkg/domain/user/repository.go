package user

import (
	"context"

	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/shared"
)

// Filter represents criteria for filtering users.
type Filter struct {
	Email      *string
	RoleName   *string
	Status     *Status
	Incomplete bool // only users with incomplete onboarding
}

// WithEmail sets the email filter.
func (f Filter) WithEmail(email string) Filter {
	f.Email = &email
	return f
}

// WithRole sets the role filter.
func (f Filter) WithRole(roleName string) Filter {
	f.RoleName = &roleName
	return f
}

// WithStatus sets the status filter.
func (f Filter) WithStatus(status Status) Filter {
	f.Status = &status
	return f
}

// WithIncompleteOnboarding restricts to users still onboarding.
func (f Filter) WithIncompleteOnboarding() Filter {
	f.Incomplete = true
	return f
}

// Repository defines the interface for user persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id shared.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id shared.ID) error

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	List(ctx context.Context, filter Filter, limit, offset int) ([]*User, error)
	Count(ctx context.Context, filter Filter) (int64, error)

	// UpdateOnboarding persists only the embedded onboarding document.
	UpdateOnboarding(ctx context.Context, id shared.ID, state *onboarding.State) error

	// UpdateSettings persists only the settings document.
	UpdateSettings(ctx context.Context, id shared.ID, settings *Settings) error

	// AddOwnedResource appends a resource id under the resource type in the
	// user's owned list if not already present.
	AddOwnedResource(ctx context.Context, id shared.ID, resourceType, resourceID string) error

	// AddSharedResource appends a resource id under the resource type in the
	// user's shared list if not already present.
	AddSharedResource(ctx context.Context, id shared.ID, resourceType, resourceID string) error
}
