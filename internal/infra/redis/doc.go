// Package redis provides the Redis integration for the API.
//
// It has four components:
//   - Client: connection management with TLS, pooling, and retry logic
//   - Cache[T]: type-safe generic caching with TTL support
//   - TokenStore: login sessions plus single-use action tokens for
//     password reset and email verification
//   - RateLimiter: distributed rate limiting using a sliding window
//
// The permission cache ([Cache] keyed by role name), the session store
// behind login/logout, and the distributed HTTP rate limiter all share the
// same Client. Cache.Get returns ErrCacheMiss on absent keys; callers fall
// through to the source of truth and repopulate.
package redis
