package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenerator() *Generator {
	return NewGenerator(TokenConfig{
		Secret:               "test-secret",
		Issuer:               "planforge-test",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
	})
}

func TestGenerator_AccessTokenRoundTrip(t *testing.T) {
	g := testGenerator()

	token, expiresAt, err := g.GenerateAccessToken("user-1", "ada@example.com", "Ada Lovelace", "sess-1", "pro")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := g.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "pro", claims.Role)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestGenerator_EmptyUserID(t *testing.T) {
	g := testGenerator()

	_, _, err := g.GenerateAccessToken("", "", "", "", "")
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, _, err = g.GenerateRefreshToken("", "")
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestGenerator_TokenPair(t *testing.T) {
	g := testGenerator()

	pair, err := g.GenerateTokenPair("user-1", "ada@example.com", "Ada", "sess-1", "user")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	// Access token validates as access, not as refresh.
	_, err = g.ValidateAccessToken(pair.AccessToken)
	assert.NoError(t, err)
	_, err = g.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	claims, err := g.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	g := testGenerator()

	token, _, err := g.GenerateAccessToken("user-1", "", "", "", "user")
	require.NoError(t, err)

	other := NewGenerator(TokenConfig{Secret: "other-secret"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	g := NewGenerator(TokenConfig{
		Secret:              "test-secret",
		Issuer:              "planforge-test",
		AccessTokenDuration: -time.Minute,
	})

	token, _, err := g.GenerateAccessToken("user-1", "", "", "", "user")
	require.NoError(t, err)

	_, err = g.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	g := testGenerator()

	_, err := g.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
