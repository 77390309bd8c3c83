package user

import (
	"errors"
	"fmt"

	"github.com/planforge/api/pkg/domain/shared"
)

// Domain errors for user operations.
var (
	ErrUserNotFound      = fmt.Errorf("user %w", shared.ErrNotFound)
	ErrUserAlreadyExists = fmt.Errorf("user %w", shared.ErrAlreadyExists)
	ErrUserSuspended     = errors.New("user is suspended")
	ErrUserInactive      = errors.New("user is inactive")
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email", shared.ErrValidation)
	ErrInvalidRole       = fmt.Errorf("%w: invalid role", shared.ErrValidation)
	ErrInvalidSection    = fmt.Errorf("settings section %w", shared.ErrNotFound)

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooWeak    = errors.New("password does not meet requirements")
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", shared.ErrValidation)
)

// NotFoundError creates a not found error for a specific user.
func NotFoundError(userID shared.ID) error {
	return fmt.Errorf("user with id %s %w", userID, shared.ErrNotFound)
}

// NotFoundByEmailError creates a not found error for a specific email.
func NotFoundByEmailError(email string) error {
	return fmt.Errorf("user with email %s %w", email, shared.ErrNotFound)
}

// AlreadyExistsError creates an already exists error for a specific email.
func AlreadyExistsError(email string) error {
	return fmt.Errorf("user with email %s %w", email, shared.ErrAlreadyExists)
}

// InvalidSectionError creates a not found error for a settings section name.
func InvalidSectionError(section string) error {
	return fmt.Errorf("%w: %s", ErrInvalidSection, section)
}
