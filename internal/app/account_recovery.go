package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/password"
)

// ActionTokenStore persists hashed one-time tokens for account actions.
// Consume must delete the token in the same operation that reads it so a
// token can never be redeemed twice.
type ActionTokenStore interface {
	StoreActionToken(ctx context.Context, purpose, tokenHash, userID string, ttl time.Duration) error
	ConsumeActionToken(ctx context.Context, purpose, tokenHash string) (string, error)
}

const (
	purposePasswordReset     = "password_reset"
	purposeEmailVerification = "email_verify"

	passwordResetTTL     = time.Hour
	emailVerificationTTL = 48 * time.Hour
)

// ErrRecoveryUnavailable is returned when no action token store is wired.
var ErrRecoveryUnavailable = errors.New("account recovery is not available")

// hashActionToken derives the storage key from a plaintext token. Only the
// digest touches Redis; a dump of the store cannot be replayed.
func hashActionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RequestPasswordReset issues a reset token for the account with the given
// email and queues the reset email. Unknown addresses succeed silently so
// the endpoint cannot be used to probe which emails have accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email, ipAddress string) error {
	if s.actionTokens == nil || s.emailEnqueuer == nil {
		return ErrRecoveryUnavailable
	}

	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := password.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.actionTokens.StoreActionToken(ctx, purposePasswordReset, hashActionToken(token), u.ID.String(), passwordResetTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.emailEnqueuer.EnqueuePasswordReset(ctx, PasswordResetJobPayload{
		UserEmail: u.Email,
		UserName:  u.FullName(),
		Token:     token,
		ExpiresIn: passwordResetTTL,
		IPAddress: ipAddress,
	}); err != nil {
		return fmt.Errorf("failed to enqueue reset email: %w", err)
	}

	s.logger.Info("password reset requested", "user_id", u.ID.String())
	return nil
}

// ResetPassword redeems a reset token and stores the new password hash.
// Returns the affected user so the caller can revoke open sessions.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) (*user.User, error) {
	if s.actionTokens == nil {
		return nil, ErrRecoveryUnavailable
	}

	if err := s.hasher.Validate(newPassword); err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err.Error())
	}

	userID, err := s.actionTokens.ConsumeActionToken(ctx, purposePasswordReset, hashActionToken(token))
	if err != nil || userID == "" {
		return nil, user.ErrInvalidToken
	}

	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, user.ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u.PasswordHash = hash
	if u.Settings != nil {
		now := time.Now().UTC()
		u.Settings.Security.PasswordLastChanged = &now
	}
	u.Touch()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("password reset completed", "user_id", u.ID.String())
	return u, nil
}

// VerifyEmail redeems a verification token and marks the account's email
// address as verified.
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*user.User, error) {
	if s.actionTokens == nil {
		return nil, ErrRecoveryUnavailable
	}

	userID, err := s.actionTokens.ConsumeActionToken(ctx, purposeEmailVerification, hashActionToken(token))
	if err != nil || userID == "" {
		return nil, user.ErrInvalidToken
	}

	id, err := shared.IDFromString(userID)
	if err != nil {
		return nil, user.ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if u.Settings == nil {
		u.Settings = user.DefaultSettings(u.Email)
	}
	if u.Settings.Account.EmailVerified {
		return u, nil
	}
	u.Settings.Account.EmailVerified = true

	if err := s.users.UpdateSettings(ctx, u.ID, u.Settings); err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.logger.Info("email verified", "user_id", u.ID.String())
	return u, nil
}

// sendVerificationEmail issues a verification token for a fresh account and
// queues the verification email. Skipped when recovery is not wired.
func (s *UserService) sendVerificationEmail(ctx context.Context, u *user.User) error {
	if s.actionTokens == nil {
		return nil
	}

	token, err := password.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	if err := s.actionTokens.StoreActionToken(ctx, purposeEmailVerification, hashActionToken(token), u.ID.String(), emailVerificationTTL); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	return s.emailEnqueuer.EnqueueVerificationEmail(ctx, VerificationEmailJobPayload{
		UserEmail: u.Email,
		UserName:  u.FullName(),
		Token:     token,
		ExpiresIn: emailVerificationTTL,
	})
}
