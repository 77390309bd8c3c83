package redis

import (
	"context"
	"time"
)

// Pinger is satisfied by clients that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is satisfied by clients that shut down cleanly.
type Closer interface {
	Close() error
}

// CacheStore is the cache surface application code should depend on, so
// tests can swap in an in-memory implementation.
type CacheStore[T any] interface {
	// Get returns the cached value or ErrCacheMiss.
	Get(ctx context.Context, key string) (*T, error)

	// Set stores a value with the default TTL.
	Set(ctx context.Context, key string, value T) error

	// SetWithTTL stores a value with an explicit TTL.
	SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet returns the cached value, loading and caching it on a miss.
	GetOrSet(ctx context.Context, key string, loader func(ctx context.Context) (*T, error)) (*T, error)
}

// SessionStorer is the session surface of the token store.
type SessionStorer interface {
	StoreSession(ctx context.Context, userID, sessionID string, data map[string]string, ttl time.Duration) error
	GetSession(ctx context.Context, userID, sessionID string) (map[string]string, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
	CountActiveSessions(ctx context.Context, userID string) (int64, error)
}

// ActionTokenStorer is the one-time token surface of the token store.
type ActionTokenStorer interface {
	StoreActionToken(ctx context.Context, purpose, tokenHash, userID string, ttl time.Duration) error
	ConsumeActionToken(ctx context.Context, purpose, tokenHash string) (string, error)
}

// RateLimiterStore is the limiter surface application code should depend on.
type RateLimiterStore interface {
	// Allow consumes one token for key and reports whether it fit the limit.
	Allow(ctx context.Context, key string) (*RateLimitResult, error)

	// Status inspects the current window without consuming anything.
	Status(ctx context.Context, key string) (*RateLimitResult, error)

	// Reset clears the window for a key.
	Reset(ctx context.Context, key string) error

	// Limit returns the configured request limit.
	Limit() int

	// Window returns the configured window duration.
	Window() time.Duration
}

// Ensure implementations satisfy interfaces.
var (
	_ Pinger            = (*Client)(nil)
	_ Closer            = (*Client)(nil)
	_ SessionStorer     = (*TokenStore)(nil)
	_ ActionTokenStorer = (*TokenStore)(nil)
	_ RateLimiterStore  = (*RateLimiter)(nil)
)
