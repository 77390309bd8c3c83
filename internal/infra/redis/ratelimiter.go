package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/planforge/api/pkg/logger"
)

// Sliding window log over a sorted set. Each allowed request adds a member
// scored with its timestamp; expired members are pruned on every call. The
// check and the insert run in one Lua script so concurrent callers cannot
// both slip under the limit.
var (
	allowScript = redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local window_ms = tonumber(ARGV[3])
		local limit = tonumber(ARGV[4])
		local request_id = ARGV[5]

		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
		local count = redis.call('ZCARD', key)

		if count < limit then
			redis.call('ZADD', key, now, request_id)
			redis.call('PEXPIRE', key, window_ms)
			return {1, limit - count - 1, now + window_ms}
		end

		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local retry_at = oldest[2] and (tonumber(oldest[2]) + window_ms) or (now + window_ms)
		return {0, 0, retry_at}
	`)

	statusScript = redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local window_ms = tonumber(ARGV[3])
		local limit = tonumber(ARGV[4])

		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
		local count = redis.call('ZCARD', key)

		local ttl = redis.call('PTTL', key)
		if ttl < 0 then
			ttl = window_ms
		end

		local remaining = limit - count
		if remaining < 0 then
			remaining = 0
		end

		local allowed = 0
		if count < limit then
			allowed = 1
		end

		return {allowed, remaining, now + ttl}
	`)
)

// RateLimiter enforces a request limit per key across all server instances
// sharing the same Redis.
type RateLimiter struct {
	client    *Client
	keyPrefix string
	limit     int
	window    time.Duration
	logger    *logger.Logger
}

// RateLimitResult describes the window state after a check.
type RateLimitResult struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAt is when the rate limit window resets.
	ResetAt time.Time

	// RetryAt is when the client should retry (only set when not allowed).
	RetryAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window for
// each key under the given prefix.
func NewRateLimiter(client *Client, prefix string, limit int, window time.Duration, log *logger.Logger) (*RateLimiter, error) {
	switch {
	case client == nil:
		return nil, errors.New("redis client is required")
	case prefix == "":
		return nil, errors.New("key prefix is required")
	case limit <= 0:
		return nil, errors.New("limit must be positive")
	case window <= 0:
		return nil, errors.New("window must be positive")
	case log == nil:
		return nil, errors.New("logger is required")
	}

	return &RateLimiter{
		client:    client,
		keyPrefix: prefix,
		limit:     limit,
		window:    window,
		logger:    log,
	}, nil
}

// windowArgs returns the script arguments describing the current window.
func (rl *RateLimiter) windowArgs() (nowMs, windowStartMs, windowMs int64) {
	now := time.Now()
	return now.UnixMilli(), now.Add(-rl.window).UnixMilli(), rl.window.Milliseconds()
}

func parseLimitReply(reply []interface{}) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   reply[0].(int64) == 1,
		Remaining: int(reply[1].(int64)),
		ResetAt:   time.UnixMilli(reply[2].(int64)),
	}
}

// Allow consumes one token for key and reports whether it fit the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	start := time.Now()
	nowMs, windowStartMs, windowMs := rl.windowArgs()

	reply, err := allowScript.Run(ctx, rl.client.client, []string{rl.keyPrefix + ":" + key},
		nowMs, windowStartMs, windowMs, rl.limit, uuid.New().String()).Slice()
	if err != nil {
		DefaultMetrics.ObserveOperation("ratelimit_allow", time.Since(start), err)
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	result := parseLimitReply(reply)
	DefaultMetrics.RecordRateLimitResult(rl.keyPrefix, result.Allowed)
	DefaultMetrics.ObserveOperation("ratelimit_allow", time.Since(start), nil)

	if !result.Allowed {
		result.RetryAt = result.ResetAt
		rl.logger.Debug("rate limit exceeded", "key", key, "retry_at", result.RetryAt)
	}
	return result, nil
}

// Status reports the current window without consuming a token. The prune and
// count still run inside a script so the answer is consistent.
func (rl *RateLimiter) Status(ctx context.Context, key string) (*RateLimitResult, error) {
	if key == "" {
		return nil, errors.New("key is required")
	}

	nowMs, windowStartMs, windowMs := rl.windowArgs()
	reply, err := statusScript.Run(ctx, rl.client.client, []string{rl.keyPrefix + ":" + key},
		nowMs, windowStartMs, windowMs, rl.limit).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit status: %w", err)
	}
	return parseLimitReply(reply), nil
}

// Reset clears the window for a key, granting immediate access.
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key is required")
	}
	if err := rl.client.client.Del(ctx, rl.keyPrefix+":"+key).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	rl.logger.Debug("rate limit reset", "key", key)
	return nil
}

// Limit returns the configured maximum requests per window.
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Window returns the configured window duration.
func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

// MiddlewareAdapter exposes the limiter through the result type the HTTP
// middleware expects, keeping the middleware package free of a dependency
// on this package's internals.
type MiddlewareAdapter struct {
	limiter *RateLimiter
}

// MiddlewareRateLimitResult is the result type consumed by the middleware.
type MiddlewareRateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	RetryAt   time.Time
}

// NewMiddlewareAdapter wraps a limiter for use with the HTTP middleware.
func NewMiddlewareAdapter(rl *RateLimiter) *MiddlewareAdapter {
	return &MiddlewareAdapter{limiter: rl}
}

// Allow checks one request and converts the result to the middleware type.
func (a *MiddlewareAdapter) Allow(ctx context.Context, key string) (*MiddlewareRateLimitResult, error) {
	result, err := a.limiter.Allow(ctx, key)
	if err != nil {
		return nil, err
	}
	return &MiddlewareRateLimitResult{
		Allowed:   result.Allowed,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAt,
		RetryAt:   result.RetryAt,
	}, nil
}

// Limit returns the configured maximum requests per window.
func (a *MiddlewareAdapter) Limit() int {
	return a.limiter.Limit()
}
