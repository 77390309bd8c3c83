package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := New(WithCost(bcrypt.MinCost)) // fast cost for tests

	hash, err := h.Hash("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.NoError(t, h.Verify("Sup3rSecret", hash))
	assert.ErrorIs(t, h.Verify("wrong", hash), ErrPasswordMismatch)
	assert.ErrorIs(t, h.Verify("Sup3rSecret", "not-a-hash"), ErrInvalidHash)
}

func TestValidateWithPolicy(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"valid", "Sup3rSecret", nil},
		{"too short", "Ab1", ErrPasswordTooShort},
		{"no uppercase", "sup3rsecret", ErrPasswordNoUppercase},
		{"no lowercase", "SUP3RSECRET", ErrPasswordNoLowercase},
		{"no number", "SuperSecret", ErrPasswordNoNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWithPolicy(tt.password, policy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(32)
	require.NoError(t, err)
	b, err := GenerateSecureToken(32)
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestHasher_NeedsRehash(t *testing.T) {
	h := New(WithCost(bcrypt.MinCost))

	hash, err := h.Hash("Sup3rSecret")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(hash))

	stronger := New(WithCost(bcrypt.MinCost + 1))
	assert.True(t, stronger.NeedsRehash(hash))
	assert.True(t, h.NeedsRehash("garbage"))
}
