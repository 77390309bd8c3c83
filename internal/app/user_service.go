package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/planforge/api/internal/metrics"
	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/jwt"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/password"
)

// UserService handles account lifecycle: registration, authentication,
// profile and settings management.
type UserService struct {
	users         user.Repository
	hasher        *password.Hasher
	tokens        *jwt.Generator
	emailEnqueuer EmailJobEnqueuer
	actionTokens  ActionTokenStore
	logger        *logger.Logger
}

// UserServiceOption configures optional UserService dependencies.
type UserServiceOption func(*UserService)

// WithUserEmailEnqueuer enables transactional account emails.
func WithUserEmailEnqueuer(enqueuer EmailJobEnqueuer) UserServiceOption {
	return func(s *UserService) {
		s.emailEnqueuer = enqueuer
	}
}

// WithActionTokenStore enables password reset and email verification flows.
// Without a store the endpoints report the feature as unavailable.
func WithActionTokenStore(store ActionTokenStore) UserServiceOption {
	return func(s *UserService) {
		s.actionTokens = store
	}
}

// NewUserService creates a new UserService.
func NewUserService(users user.Repository, hasher *password.Hasher, tokens *jwt.Generator, log *logger.Logger, opts ...UserServiceOption) *UserService {
	s := &UserService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: log.With("service", "user"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ====== REGISTRATION ======

// RegisterInput contains data for creating a new account.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,min=1,max=100"`
	LastName  string `json:"lastName" validate:"required,min=1,max=100"`
}

// Register creates a new account with the base role, default settings and a
// fresh onboarding state, then queues the welcome email.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*user.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, user.ErrInvalidEmail
	}

	if err := s.hasher.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, user.AlreadyExistsError(email)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := user.New(email, user.SanitizeName(input.FirstName), user.SanitizeName(input.LastName))
	u.PasswordHash = hash
	u.Settings = user.DefaultSettings(email)
	state := onboarding.NewState(onboarding.UserData{
		FirstName: u.FirstName,
		LastName:  u.LastName,
	})
	u.Onboarding = &state

	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	metrics.UsersRegisteredTotal.Inc()
	s.logger.Info("user registered",
		"user_id", u.ID.String(),
		"email", u.Email,
	)

	if s.emailEnqueuer != nil {
		payload := WelcomeEmailJobPayload{
			UserEmail: u.Email,
			UserName:  u.FullName(),
		}
		if err := s.emailEnqueuer.EnqueueWelcomeEmail(ctx, payload); err != nil {
			s.logger.Error("failed to enqueue welcome email",
				"user_id", u.ID.String(),
				"error", err,
			)
		}
		if err := s.sendVerificationEmail(ctx, u); err != nil {
			s.logger.Error("failed to enqueue verification email",
				"user_id", u.ID.String(),
				"error", err,
			)
		}
	}

	return u, nil
}

// ====== AUTHENTICATION ======

// LoginInput contains credentials for authentication.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult carries the authenticated user, their token pair and the id of
// the session the tokens belong to.
type AuthResult struct {
	User      *user.User     `json:"user"`
	Tokens    *jwt.TokenPair `json:"tokens"`
	SessionID string         `json:"sessionId"`
}

// Login verifies credentials and issues a token pair. Lookup failures and
// password mismatches both return ErrInvalidCredentials so callers cannot
// probe which addresses have accounts.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, user.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !u.IsActive() {
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		s.logger.Warn("login attempt on inactive account",
			"user_id", u.ID.String(),
			"status", u.Status.String(),
		)
		return nil, user.ErrUserSuspended
	}

	if err := s.hasher.Verify(input.Password, u.PasswordHash); err != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, user.ErrInvalidCredentials
	}

	sessionID := shared.NewID().String()
	pair, err := s.tokens.GenerateTokenPair(u.ID.String(), u.Email, u.FullName(), sessionID, u.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.Touch()
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.Error("failed to record login time",
			"user_id", u.ID.String(),
			"error", err,
		)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.logger.Info("user logged in",
		"user_id", u.ID.String(),
	)

	return &AuthResult{User: u, Tokens: pair, SessionID: sessionID}, nil
}

// RefreshTokens exchanges a valid refresh token for a new token pair. The
// user is reloaded so the new access token carries their current role.
func (s *UserService) RefreshTokens(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrUnauthorized, err.Error())
	}

	id, err := shared.IDFromString(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", shared.ErrUnauthorized)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !u.IsActive() {
		return nil, user.ErrUserSuspended
	}

	pair, err := s.tokens.GenerateTokenPair(u.ID.String(), u.Email, u.FullName(), claims.SessionID, u.Role())
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return pair, nil
}

// ====== PROFILE ======

// GetUser loads a user by id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*user.User, error) {
	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// UpdateProfileInput contains updatable identity fields. Nil pointers leave
// the field untouched.
type UpdateProfileInput struct {
	UserID    string  `json:"userId" validate:"required,uuid"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
}

// UpdateProfile applies a partial profile update.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*user.User, error) {
	id, err := shared.IDFromString(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if input.FirstName != nil {
		name := user.SanitizeName(*input.FirstName)
		if name == "" {
			return nil, fmt.Errorf("%w: first name cannot be empty", shared.ErrValidation)
		}
		u.FirstName = name
	}
	if input.LastName != nil {
		name := user.SanitizeName(*input.LastName)
		if name == "" {
			return nil, fmt.Errorf("%w: last name cannot be empty", shared.ErrValidation)
		}
		u.LastName = name
	}

	u.Touch()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return u, nil
}

// ChangePasswordInput contains data for a password change.
type ChangePasswordInput struct {
	UserID          string `json:"userId" validate:"required,uuid"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	id, err := shared.IDFromString(input.UserID)
	if err != nil {
		return fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.hasher.Verify(input.CurrentPassword, u.PasswordHash); err != nil {
		return user.ErrInvalidCredentials
	}
	if err := s.hasher.Validate(input.NewPassword); err != nil {
		return fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = hash
	if u.Settings != nil {
		now := time.Now().UTC()
		u.Settings.Security.PasswordLastChanged = &now
	}
	u.Touch()

	if err := s.users.Update(ctx, u); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("password changed",
		"user_id", u.ID.String(),
	)
	return nil
}

// ====== SETTINGS ======

// GetSettings returns the user's settings document, falling back to the
// defaults for accounts that have never written one.
func (s *UserService) GetSettings(ctx context.Context, userID string) (*user.Settings, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Settings != nil {
		return u.Settings, nil
	}
	return user.DefaultSettings(u.Email), nil
}

// UpdateSettingsSectionInput replaces one named section of the settings
// document. Data is the raw JSON for the section; ActorRole decides whether
// protected feature flags may change.
type UpdateSettingsSectionInput struct {
	UserID    string          `json:"userId" validate:"required,uuid"`
	Section   string          `json:"section" validate:"required,settings_section"`
	Data      json.RawMessage `json:"data" validate:"required"`
	ActorRole string          `json:"-"`
}

// UpdateSettingsSection decodes the payload into the named section and
// persists the document. Protected feature flags are silently kept at their
// stored values unless the actor is an administrator.
func (s *UserService) UpdateSettingsSection(ctx context.Context, input UpdateSettingsSectionInput) (*user.Settings, error) {
	id, err := shared.IDFromString(input.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	settings := u.Settings
	if settings == nil {
		settings = user.DefaultSettings(u.Email)
	}

	switch input.Section {
	case user.SectionAccount:
		var section user.AccountSettings
		if err := json.Unmarshal(input.Data, &section); err != nil {
			return nil, fmt.Errorf("%w: malformed account settings", shared.ErrValidation)
		}
		// email and its verification flag follow the account, not the payload
		section.Email = settings.Account.Email
		section.EmailVerified = settings.Account.EmailVerified
		settings.Account = section
	case user.SectionSecurity:
		var section user.SecuritySettings
		if err := json.Unmarshal(input.Data, &section); err != nil {
			return nil, fmt.Errorf("%w: malformed security settings", shared.ErrValidation)
		}
		section.PasswordLastChanged = settings.Security.PasswordLastChanged
		settings.Security = section
	case user.SectionSubscription:
		if input.ActorRole != role.Admin {
			return nil, fmt.Errorf("%w: subscription is managed by billing", shared.ErrForbidden)
		}
		var section user.SubscriptionSettings
		if err := json.Unmarshal(input.Data, &section); err != nil {
			return nil, fmt.Errorf("%w: malformed subscription settings", shared.ErrValidation)
		}
		settings.Subscription = section
	case user.SectionFeatures:
		var section user.FeatureSettings
		if err := json.Unmarshal(input.Data, &section); err != nil {
			return nil, fmt.Errorf("%w: malformed feature settings", shared.ErrValidation)
		}
		if input.ActorRole != role.Admin {
			section.CustomDomains = settings.Features.CustomDomains
			section.APIAccess = settings.Features.APIAccess
			section.PrioritySupport = settings.Features.PrioritySupport
		}
		settings.Features = section
	case user.SectionNotifications:
		var section user.NotificationSettings
		if err := json.Unmarshal(input.Data, &section); err != nil {
			return nil, fmt.Errorf("%w: malformed notification settings", shared.ErrValidation)
		}
		settings.Notifications = section
	case user.SectionPrivacy:
		var section user.PrivacySettings
		if err := json.Unmarshal(input.Data, &section); err != nil {
			return nil, fmt.Errorf("%w: malformed privacy settings", shared.ErrValidation)
		}
		settings.Privacy = section
	default:
		return nil, user.InvalidSectionError(input.Section)
	}

	if err := s.users.UpdateSettings(ctx, id, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	s.logger.Info("settings section updated",
		"user_id", id.String(),
		"section", input.Section,
	)
	return settings, nil
}

// ====== ADMINISTRATION ======

// ListUsersInput contains filter and paging criteria for listing accounts.
type ListUsersInput struct {
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Status     string `json:"status,omitempty"`
	Incomplete bool   `json:"incomplete,omitempty"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// ListUsers returns accounts matching the filter plus the total match count.
func (s *UserService) ListUsers(ctx context.Context, input ListUsersInput) ([]*user.User, int64, error) {
	filter := user.Filter{}
	if input.Email != "" {
		filter = filter.WithEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	}
	if input.Role != "" {
		filter = filter.WithRole(input.Role)
	}
	if input.Status != "" {
		status := user.Status(input.Status)
		if !status.IsValid() {
			return nil, 0, fmt.Errorf("%w: invalid status %q", shared.ErrValidation, input.Status)
		}
		filter = filter.WithStatus(status)
	}
	if input.Incomplete {
		filter = filter.WithIncompleteOnboarding()
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	users, err := s.users.List(ctx, filter, limit, input.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	return users, total, nil
}

// ChangeRole assigns a different role to the account. Permission and limit
// changes take effect on the user's next permission check.
func (s *UserService) ChangeRole(ctx context.Context, userID, roleName string) (*user.User, error) {
	if !role.Builtin().Exists(roleName) {
		return nil, fmt.Errorf("%w: %s", user.ErrInvalidRole, roleName)
	}

	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	previous := u.Role()
	u.RoleName = roleName
	u.Touch()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("role changed",
		"user_id", u.ID.String(),
		"from", previous,
		"to", roleName,
	)
	return u, nil
}

// ChangeStatus activates, deactivates or suspends the account. Suspended
// accounts fail login and token refresh.
func (s *UserService) ChangeStatus(ctx context.Context, userID string, status user.Status) (*user.User, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", shared.ErrValidation, status)
	}

	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id format", shared.ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	u.Status = status
	u.Touch()
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("status changed",
		"user_id", u.ID.String(),
		"status", status.String(),
	)
	return u, nil
}
