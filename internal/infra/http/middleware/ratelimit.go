package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/planforge/api/internal/config"
	redisinfra "github.com/planforge/api/internal/infra/redis"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/logger"
)

// RateLimiter applies a per-IP token bucket. It is process-local; use
// DistributedRateLimit when running more than one instance.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
	cleanup  time.Duration
	log      *logger.Logger
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
func NewRateLimiter(cfg *config.RateLimitConfig, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(cfg.RequestsPerSec),
		burst:    cfg.Burst,
		cleanup:  cfg.CleanupInterval,
		log:      log,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go rl.evictIdleVisitors()
	return rl
}

// Stop terminates the cleanup goroutine and waits for it to exit. Safe to
// call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.done)
	})
	<-rl.stopped
}

func (rl *RateLimiter) visitorLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (rl *RateLimiter) evictIdleVisitors() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()
	defer close(rl.stopped)

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware enforces the limit and sets X-RateLimit-* headers on every
// response.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)
			limiter := rl.visitorLimiter(ip)

			// Tokens() is read before Allow() consumes one
			tokens := limiter.Tokens()
			remaining := int(math.Max(0, math.Floor(tokens)-1))

			reset := time.Now()
			if deficit := float64(rl.burst) - tokens; deficit > 0 && rl.rate > 0 {
				reset = reset.Add(time.Duration(deficit / float64(rl.rate) * float64(time.Second)))
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !limiter.Allow() {
				rl.log.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				apierror.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitWithStop builds the rate limiting middleware from config. The
// returned stop function belongs in graceful shutdown. When rate limiting
// is disabled both returns are no-ops.
func RateLimitWithStop(cfg *config.RateLimitConfig, log *logger.Logger) (func(http.Handler) http.Handler, func()) {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }, func() {}
	}
	rl := NewRateLimiter(cfg, log)
	return rl.Middleware(), rl.Stop
}

// getClientIP resolves the client address, preferring proxy headers.
// X-Forwarded-For is spoofable unless a trusted proxy strips it.
func getClientIP(r *http.Request) string {
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return strings.TrimSpace(xrip)
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// DistributedRateLimitConfig configures Redis-backed rate limiting.
type DistributedRateLimitConfig struct {
	// Limiter is the Redis-backed sliding window adapter.
	Limiter *redisinfra.MiddlewareAdapter
	// KeyFunc derives the limit key from the request. Defaults to client IP.
	KeyFunc func(r *http.Request) string
	// Logger receives limit events.
	Logger *logger.Logger
	// SkipFunc exempts matching requests from rate limiting.
	SkipFunc func(r *http.Request) bool
}

// DistributedRateLimit enforces a shared limit across instances through
// Redis. When Redis is unreachable the middleware fails open so an outage
// does not take the API down with it.
func DistributedRateLimit(cfg DistributedRateLimitConfig) func(http.Handler) http.Handler {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = getClientIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.SkipFunc != nil && cfg.SkipFunc(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cfg.KeyFunc(r)
			result, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Error("distributed rate limit check failed",
						"error", err,
						"key", key,
						"request_id", GetRequestID(r.Context()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

			if !result.Allowed {
				retryAfter := int(time.Until(result.RetryAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				if cfg.Logger != nil {
					cfg.Logger.Warn("distributed rate limit exceeded",
						"key", key,
						"retry_at", result.RetryAt,
						"request_id", GetRequestID(r.Context()),
					)
				}
				apierror.RateLimitExceeded().WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UserKeyFunc keys the limit on the authenticated user, falling back to
// client IP before authentication has run.
func UserKeyFunc(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + getClientIP(r)
}

// AuthRateLimiter applies strict per-IP limits to the authentication
// endpoints and bans IPs that keep failing to log in. The ban complements
// the token buckets with a longer window against slow brute force.
type AuthRateLimiter struct {
	loginLimiter    *RateLimiter
	registerLimiter *RateLimiter
	passwordLimiter *RateLimiter
	failures        *failureTracker
	log             *logger.Logger
}

// AuthRateLimitConfig configures the auth endpoint limits.
type AuthRateLimitConfig struct {
	// LoginRatePerMin caps login attempts per minute per IP. Default 5.
	LoginRatePerMin int
	// RegisterRatePerMin caps registrations per minute per IP. Default 3.
	RegisterRatePerMin int
	// PasswordResetRatePerMin caps reset requests per minute per IP. Default 3.
	PasswordResetRatePerMin int
	// CleanupInterval for idle visitor entries. Default 1 minute.
	CleanupInterval time.Duration

	// MaxFailures is how many rejected logins within FailureWindow trigger
	// a ban. Default 5.
	MaxFailures int
	// BanDuration is how long a banned IP stays blocked. Default 15 minutes.
	BanDuration time.Duration
	// FailureWindow is the period over which failures accumulate. Default
	// 5 minutes.
	FailureWindow time.Duration
}

// DefaultAuthRateLimitConfig returns the default auth limits.
func DefaultAuthRateLimitConfig() AuthRateLimitConfig {
	return AuthRateLimitConfig{
		LoginRatePerMin:         5,
		RegisterRatePerMin:      3,
		PasswordResetRatePerMin: 3,
		CleanupInterval:         time.Minute,
		MaxFailures:             5,
		BanDuration:             15 * time.Minute,
		FailureWindow:           5 * time.Minute,
	}
}

// NewAuthRateLimiter creates the auth endpoint limiter.
func NewAuthRateLimiter(cfg AuthRateLimitConfig, log *logger.Logger) *AuthRateLimiter {
	if cfg.LoginRatePerMin == 0 {
		cfg.LoginRatePerMin = 5
	}
	if cfg.RegisterRatePerMin == 0 {
		cfg.RegisterRatePerMin = 3
	}
	if cfg.PasswordResetRatePerMin == 0 {
		cfg.PasswordResetRatePerMin = 3
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.BanDuration == 0 {
		cfg.BanDuration = 15 * time.Minute
	}
	if cfg.FailureWindow == 0 {
		cfg.FailureWindow = 5 * time.Minute
	}

	perIP := func(perMin int) *RateLimiter {
		return NewRateLimiter(&config.RateLimitConfig{
			Enabled:         true,
			RequestsPerSec:  float64(perMin) / 60.0,
			Burst:           perMin,
			CleanupInterval: cfg.CleanupInterval,
		}, log)
	}

	return &AuthRateLimiter{
		loginLimiter:    perIP(cfg.LoginRatePerMin),
		registerLimiter: perIP(cfg.RegisterRatePerMin),
		passwordLimiter: perIP(cfg.PasswordResetRatePerMin),
		failures: newFailureTracker(cfg.MaxFailures, cfg.BanDuration,
			cfg.FailureWindow, cfg.CleanupInterval, log),
		log: log,
	}
}

// Stop shuts down the limiters and the failure tracker.
func (a *AuthRateLimiter) Stop() {
	a.loginLimiter.Stop()
	a.registerLimiter.Stop()
	a.passwordLimiter.Stop()
	a.failures.Stop()
}

// LoginMiddleware limits login attempts. IPs that keep failing get banned
// outright; a successful login clears their record.
func (a *AuthRateLimiter) LoginMiddleware() func(http.Handler) http.Handler {
	limited := a.loginLimiter.Middleware()
	return func(next http.Handler) http.Handler {
		return limited(a.trackFailures(next))
	}
}

// RegisterMiddleware limits registration attempts.
func (a *AuthRateLimiter) RegisterMiddleware() func(http.Handler) http.Handler {
	return a.registerLimiter.Middleware()
}

// PasswordMiddleware limits password reset requests, with the same ban
// tracking as logins.
func (a *AuthRateLimiter) PasswordMiddleware() func(http.Handler) http.Handler {
	limited := a.passwordLimiter.Middleware()
	return func(next http.Handler) http.Handler {
		return limited(a.trackFailures(next))
	}
}

// trackFailures watches the response status: a 401 counts against the IP,
// a 2xx clears it, and banned IPs are rejected before the handler runs.
func (a *AuthRateLimiter) trackFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		if a.failures.IsBanned(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(int(a.failures.banDuration.Seconds())))
			apierror.RateLimitExceeded().WriteJSON(w)
			return
		}

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		switch {
		case wrapped.statusCode == http.StatusUnauthorized:
			a.failures.RecordFailure(ip)
		case wrapped.statusCode/100 == 2:
			a.failures.RecordSuccess(ip)
		}
	})
}

// failureTracker counts auth failures per IP and bans repeat offenders.
type failureTracker struct {
	mu          sync.RWMutex
	entries     map[string]*failureEntry
	maxFailures int
	banDuration time.Duration
	window      time.Duration
	log         *logger.Logger
	done        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
}

type failureEntry struct {
	count     int
	firstFail time.Time
	bannedAt  *time.Time
}

func newFailureTracker(maxFailures int, ban, window, cleanupInterval time.Duration, log *logger.Logger) *failureTracker {
	ft := &failureTracker{
		entries:     make(map[string]*failureEntry),
		maxFailures: maxFailures,
		banDuration: ban,
		window:      window,
		log:         log,
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go ft.expireEntries(cleanupInterval)
	return ft
}

func (ft *failureTracker) Stop() {
	ft.stopOnce.Do(func() {
		close(ft.done)
	})
	<-ft.stopped
}

func (ft *failureTracker) expireEntries(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(ft.stopped)

	for {
		select {
		case <-ft.done:
			return
		case <-ticker.C:
			ft.mu.Lock()
			now := time.Now()
			for ip, e := range ft.entries {
				expired := (e.bannedAt != nil && now.Sub(*e.bannedAt) > ft.banDuration) ||
					(e.bannedAt == nil && now.Sub(e.firstFail) > ft.window)
				if expired {
					delete(ft.entries, ip)
				}
			}
			ft.mu.Unlock()
		}
	}
}

// IsBanned reports whether the IP has an active ban.
func (ft *failureTracker) IsBanned(ip string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	e, ok := ft.entries[ip]
	return ok && e.bannedAt != nil && time.Since(*e.bannedAt) <= ft.banDuration
}

// RecordFailure counts a failed attempt and reports whether the IP is now
// banned. A failure during an active ban extends it.
func (ft *failureTracker) RecordFailure(ip string) bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	now := time.Now()
	e, ok := ft.entries[ip]
	if !ok {
		ft.entries[ip] = &failureEntry{count: 1, firstFail: now}
		return false
	}

	if e.bannedAt != nil {
		e.bannedAt = &now
		return true
	}

	if now.Sub(e.firstFail) > ft.window {
		e.count = 1
		e.firstFail = now
		return false
	}

	e.count++
	if e.count >= ft.maxFailures {
		e.bannedAt = &now
		if ft.log != nil {
			ft.log.Warn("IP banned after repeated auth failures",
				"ip", ip,
				"failure_count", e.count,
				"ban_duration", ft.banDuration,
			)
		}
		RecordAuthFailure("banned")
		return true
	}
	return false
}

// RecordSuccess clears the IP's failure record.
func (ft *failureTracker) RecordSuccess(ip string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	delete(ft.entries, ip)
}
