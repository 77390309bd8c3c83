// Package password hashes credentials with bcrypt and enforces a strength
// policy. It also issues the random tokens used in account recovery links.
package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial   = errors.New("password must contain at least one special character")
	ErrPasswordMismatch    = errors.New("password does not match")
	ErrInvalidHash         = errors.New("invalid password hash")
)

// DefaultCost is the bcrypt work factor used unless WithCost overrides it.
const DefaultCost = 12

// Policy describes what an acceptable password looks like.
type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

// DefaultPolicy requires eight characters with mixed case and a digit.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
}

// Hasher hashes and verifies passwords under a single cost and policy.
type Hasher struct {
	cost   int
	policy Policy
}

// Option configures the Hasher.
type Option func(*Hasher)

// WithCost overrides the bcrypt cost. Values outside bcrypt's supported
// range are ignored rather than failing construction.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// WithPolicy overrides the strength policy.
func WithPolicy(policy Policy) Option {
	return func(h *Hasher) {
		h.policy = policy
	}
}

// New creates a Hasher with the default cost and policy.
func New(opts ...Option) *Hasher {
	h := &Hasher{cost: DefaultCost, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash returns the bcrypt hash of a password.
func (h *Hasher) Hash(plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plaintext matches hash. A malformed hash returns
// ErrInvalidHash so callers can tell corruption apart from a wrong password.
func (h *Hasher) Verify(plaintext, hash string) error {
	switch err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)); {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return ErrInvalidHash
	}
}

// Validate checks plaintext against the hasher's policy.
func (h *Hasher) Validate(plaintext string) error {
	return ValidateWithPolicy(plaintext, h.policy)
}

// NeedsRehash reports whether a stored hash was produced at a different
// cost than the hasher is configured for.
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}

// ValidateWithPolicy checks plaintext against an explicit policy. The first
// violated rule is returned.
func ValidateWithPolicy(plaintext string, policy Policy) error {
	if len(plaintext) < policy.MinLength {
		return ErrPasswordTooShort
	}

	var upper, lower, digit, special bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsNumber(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}

	switch {
	case policy.RequireUpper && !upper:
		return ErrPasswordNoUppercase
	case policy.RequireLower && !lower:
		return ErrPasswordNoLowercase
	case policy.RequireNumber && !digit:
		return ErrPasswordNoNumber
	case policy.RequireSpecial && !special:
		return ErrPasswordNoSpecial
	}
	return nil
}

// GenerateSecureToken returns length random bytes as URL-safe base64.
// Used for password reset and email verification links.
func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
