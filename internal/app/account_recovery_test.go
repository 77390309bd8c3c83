package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/jwt"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/password"
)

// fakeActionTokenStore keeps hashed tokens in a map and deletes on consume.
type fakeActionTokenStore struct {
	tokens map[string]string // purpose:hash -> userID
}

func newFakeActionTokenStore() *fakeActionTokenStore {
	return &fakeActionTokenStore{tokens: make(map[string]string)}
}

func (f *fakeActionTokenStore) StoreActionToken(_ context.Context, purpose, tokenHash, userID string, _ time.Duration) error {
	f.tokens[purpose+":"+tokenHash] = userID
	return nil
}

func (f *fakeActionTokenStore) ConsumeActionToken(_ context.Context, purpose, tokenHash string) (string, error) {
	key := purpose + ":" + tokenHash
	userID, ok := f.tokens[key]
	if !ok {
		return "", user.ErrInvalidToken
	}
	delete(f.tokens, key)
	return userID, nil
}

func testRecoveryService(users ...*user.User) (*UserService, *fakeUserRepo, *fakeEmailEnqueuer, *fakeActionTokenStore) {
	repo := newFakeUserRepo(users...)
	enqueuer := &fakeEmailEnqueuer{}
	store := newFakeActionTokenStore()
	hasher := password.New(password.WithCost(bcrypt.MinCost))
	tokens := jwt.NewGenerator(jwt.TokenConfig{
		Secret:               "test-secret-at-least-32-characters-long",
		Issuer:               "planforge-test",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 24 * time.Hour,
	})
	svc := NewUserService(repo, hasher, tokens, logger.NewNop(),
		WithUserEmailEnqueuer(enqueuer),
		WithActionTokenStore(store),
	)
	return svc, repo, enqueuer, store
}

func TestUserService_RequestPasswordReset(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, enqueuer, store := testRecoveryService(u)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "  Ada@Example.COM ", "203.0.113.9"))

	require.Len(t, enqueuer.resets, 1)
	sent := enqueuer.resets[0]
	assert.Equal(t, "ada@example.com", sent.UserEmail)
	assert.Equal(t, "203.0.113.9", sent.IPAddress)
	assert.NotEmpty(t, sent.Token)

	// Only the hash is stored, never the plaintext token
	for key := range store.tokens {
		assert.NotContains(t, key, sent.Token)
	}
}

func TestUserService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	svc, _, enqueuer, _ := testRecoveryService()

	// Unknown addresses succeed without sending anything
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com", ""))
	assert.Empty(t, enqueuer.resets)
}

func TestUserService_ResetPassword(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	u.Settings = user.DefaultSettings(u.Email)
	svc, repo, enqueuer, _ := testRecoveryService(u)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, u.Email, ""))
	token := enqueuer.resets[0].Token

	reset, err := svc.ResetPassword(ctx, token, "N3w-Password-Ok")
	require.NoError(t, err)
	assert.Equal(t, u.ID, reset.ID)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("N3w-Password-Ok")))
	require.NotNil(t, stored.Settings.Security.PasswordLastChanged)

	// The token is single use
	_, err = svc.ResetPassword(ctx, token, "An0ther-Password")
	assert.ErrorIs(t, err, user.ErrInvalidToken)
}

func TestUserService_ResetPassword_InvalidToken(t *testing.T) {
	svc, _, _, _ := testRecoveryService()

	_, err := svc.ResetPassword(context.Background(), "bogus", "N3w-Password-Ok")
	assert.ErrorIs(t, err, user.ErrInvalidToken)
}

func TestUserService_ResetPassword_WeakPassword(t *testing.T) {
	u := user.New("ada@example.com", "Ada", "Lovelace")
	svc, _, enqueuer, store := testRecoveryService(u)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, u.Email, ""))
	token := enqueuer.resets[0].Token

	_, err := svc.ResetPassword(ctx, token, "short")
	require.Error(t, err)

	// Policy rejection must not burn the token
	assert.Len(t, store.tokens, 1)
}

func TestUserService_VerifyEmail(t *testing.T) {
	svc, repo, enqueuer, _ := testRecoveryService()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "Correct-Horse-42",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.False(t, u.Settings.Account.EmailVerified)

	require.Len(t, enqueuer.verification, 1)
	token := enqueuer.verification[0].Token

	verified, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.Settings.Account.EmailVerified)

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.Settings.Account.EmailVerified)

	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, user.ErrInvalidToken)
}

func TestUserService_Recovery_Unconfigured(t *testing.T) {
	svc, _, _ := testUserService()
	ctx := context.Background()

	assert.ErrorIs(t, svc.RequestPasswordReset(ctx, "a@b.com", ""), ErrRecoveryUnavailable)
	_, err := svc.ResetPassword(ctx, "token", "N3w-Password-Ok")
	assert.ErrorIs(t, err, ErrRecoveryUnavailable)
	_, err = svc.VerifyEmail(ctx, "token")
	assert.ErrorIs(t, err, ErrRecoveryUnavailable)
}
