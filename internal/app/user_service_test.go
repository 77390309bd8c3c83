package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/jwt"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/password"
)

func testUserService(users ...*user.User) (*UserService, *fakeUserRepo, *fakeEmailEnqueuer) {
	repo := newFakeUserRepo(users...)
	enqueuer := &fakeEmailEnqueuer{}
	hasher := password.New(password.WithCost(bcrypt.MinCost))
	tokens := jwt.NewGenerator(jwt.TokenConfig{
		Secret:               "test-secret-at-least-32-characters-long",
		Issuer:               "planforge-test",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
	})
	svc := NewUserService(repo, hasher, tokens, logger.NewNop(), WithUserEmailEnqueuer(enqueuer))
	return svc, repo, enqueuer
}

func TestUserService_Register(t *testing.T) {
	svc, repo, enqueuer := testUserService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Email:     "  Ada@Example.COM ",
		Password:  "Correct-Horse-42",
		FirstName: "  Ada ",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, role.User, u.Role())
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "Correct-Horse-42", u.PasswordHash)

	require.NotNil(t, u.Settings)
	assert.Equal(t, "ada@example.com", u.Settings.Account.Email)
	require.NotNil(t, u.Onboarding)
	assert.Equal(t, "Ada", u.Onboarding.Profile.Name.FirstName)

	stored, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)

	require.Len(t, enqueuer.welcome, 1)
	assert.Equal(t, "ada@example.com", enqueuer.welcome[0].UserEmail)
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	existing := user.New("taken@example.com", "First", "User")
	svc, _, _ := testUserService(existing)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "TAKEN@example.com",
		Password:  "Correct-Horse-42",
		FirstName: "Second",
		LastName:  "User",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestUserService_Register_WeakPassword(t *testing.T) {
	svc, _, _ := testUserService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:     "ada@example.com",
		Password:  "short",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUserService_Login(t *testing.T) {
	svc, repo, _ := testUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "Correct-Horse-42",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	t.Run("valid credentials issue a token pair", func(t *testing.T) {
		result, err := svc.Login(ctx, LoginInput{
			Email:    "Ada@example.com",
			Password: "Correct-Horse-42",
		})
		require.NoError(t, err)
		require.NotNil(t, result.Tokens)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)

		stored, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{
			Email:    "ada@example.com",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("unknown email gets the same error as a wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{
			Email:    "nobody@example.com",
			Password: "whatever",
		})
		assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	})

	t.Run("suspended account", func(t *testing.T) {
		stored, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		stored.Status = user.StatusSuspended
		defer func() { stored.Status = user.StatusActive }()

		_, err = svc.Login(ctx, LoginInput{
			Email:    "ada@example.com",
			Password: "Correct-Horse-42",
		})
		assert.ErrorIs(t, err, user.ErrUserSuspended)
	})
}

func TestUserService_RefreshTokens(t *testing.T) {
	svc, _, _ := testUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "Correct-Horse-42",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{
		Email:    "ada@example.com",
		Password: "Correct-Horse-42",
	})
	require.NoError(t, err)

	pair, err := svc.RefreshTokens(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.RefreshTokens(ctx, result.Tokens.AccessToken)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestUserService_UpdateProfile(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, _ := testUserService(u)
	ctx := context.Background()

	first := "  Grace "
	updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID:    u.ID.String(),
		FirstName: &first,
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)

	empty := "   "
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID:    u.ID.String(),
		FirstName: &empty,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUserService_ChangePassword(t *testing.T) {
	svc, _, _ := testUserService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "Correct-Horse-42",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:          registered.ID.String(),
		CurrentPassword: "wrong",
		NewPassword:     "An-Even-Better-7",
	})
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, ChangePasswordInput{
		UserID:          registered.ID.String(),
		CurrentPassword: "Correct-Horse-42",
		NewPassword:     "An-Even-Better-7",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{
		Email:    "ada@example.com",
		Password: "An-Even-Better-7",
	})
	assert.NoError(t, err)
}

func TestUserService_Settings(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, _ := testUserService(u)
	ctx := context.Background()

	t.Run("defaults when never written", func(t *testing.T) {
		settings, err := svc.GetSettings(ctx, u.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "free", settings.Subscription.Plan)
		assert.Equal(t, "UTC", settings.Account.Timezone)
	})

	t.Run("notifications section round trip", func(t *testing.T) {
		data, err := json.Marshal(user.NotificationSettings{
			Channels:        map[string]bool{"email": false},
			DigestFrequency: "weekly",
			DigestDay:       5,
		})
		require.NoError(t, err)

		settings, err := svc.UpdateSettingsSection(ctx, UpdateSettingsSectionInput{
			UserID:    u.ID.String(),
			Section:   user.SectionNotifications,
			Data:      data,
			ActorRole: role.User,
		})
		require.NoError(t, err)
		assert.Equal(t, "weekly", settings.Notifications.DigestFrequency)
		assert.False(t, settings.Notifications.Channels["email"])
	})

	t.Run("protected feature flags stay put for normal users", func(t *testing.T) {
		data, err := json.Marshal(user.FeatureSettings{
			AdvancedPlanning: true,
			APIAccess:        true,
			PrioritySupport:  true,
		})
		require.NoError(t, err)

		settings, err := svc.UpdateSettingsSection(ctx, UpdateSettingsSectionInput{
			UserID:    u.ID.String(),
			Section:   user.SectionFeatures,
			Data:      data,
			ActorRole: role.User,
		})
		require.NoError(t, err)
		assert.True(t, settings.Features.AdvancedPlanning)
		assert.False(t, settings.Features.APIAccess)
		assert.False(t, settings.Features.PrioritySupport)
	})

	t.Run("admins may toggle protected flags", func(t *testing.T) {
		data, err := json.Marshal(user.FeatureSettings{APIAccess: true})
		require.NoError(t, err)

		settings, err := svc.UpdateSettingsSection(ctx, UpdateSettingsSectionInput{
			UserID:    u.ID.String(),
			Section:   user.SectionFeatures,
			Data:      data,
			ActorRole: role.Admin,
		})
		require.NoError(t, err)
		assert.True(t, settings.Features.APIAccess)
	})

	t.Run("subscription section is admin only", func(t *testing.T) {
		data := json.RawMessage(`{"plan":"enterprise"}`)
		_, err := svc.UpdateSettingsSection(ctx, UpdateSettingsSectionInput{
			UserID:    u.ID.String(),
			Section:   user.SectionSubscription,
			Data:      data,
			ActorRole: role.User,
		})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("account email cannot be changed through settings", func(t *testing.T) {
		data := json.RawMessage(`{"email":"evil@example.com","timezone":"Europe/Paris"}`)
		settings, err := svc.UpdateSettingsSection(ctx, UpdateSettingsSectionInput{
			UserID:    u.ID.String(),
			Section:   user.SectionAccount,
			Data:      data,
			ActorRole: role.User,
		})
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", settings.Account.Email)
		assert.Equal(t, "Europe/Paris", settings.Account.Timezone)
	})

	t.Run("unknown section", func(t *testing.T) {
		_, err := svc.UpdateSettingsSection(ctx, UpdateSettingsSectionInput{
			UserID:    u.ID.String(),
			Section:   "billing",
			Data:      json.RawMessage(`{}`),
			ActorRole: role.User,
		})
		assert.ErrorIs(t, err, user.ErrInvalidSection)
	})
}
