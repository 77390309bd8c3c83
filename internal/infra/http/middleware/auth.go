package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/jwt"
	"github.com/planforge/api/pkg/logger"
)

// Identity keys populated by the auth middleware.
const (
	UserIDKey    contextKey = "user_id"
	RoleKey      contextKey = "role"
	EmailKey     contextKey = "email"
	SessionIDKey contextKey = "session_id"
)

// SessionChecker validates that a session has not been revoked. Implemented
// by the Redis token store; nil disables the check.
type SessionChecker interface {
	GetSession(ctx context.Context, userID, sessionID string) (map[string]string, error)
}

// Authenticator validates bearer tokens and populates request context with
// the caller's identity.
type Authenticator struct {
	tokens   *jwt.Generator
	sessions SessionChecker
	logger   *logger.Logger
}

// AuthenticatorOption configures the Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithSessionChecker enables session revocation checks on every request.
func WithSessionChecker(sessions SessionChecker) AuthenticatorOption {
	return func(a *Authenticator) {
		a.sessions = sessions
	}
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(tokens *jwt.Generator, log *logger.Logger, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		tokens: tokens,
		logger: log.With("component", "auth_middleware"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Middleware validates the access token and stores identity in context.
// Tokens are read from the Authorization header; the token query parameter
// is accepted as a fallback for WebSocket upgrades, where browsers cannot
// set headers.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				apierror.Unauthorized("Missing authentication token").WriteJSON(w)
				return
			}

			claims, err := a.tokens.ValidateAccessToken(tokenString)
			if err != nil {
				RecordAuthFailure("invalid_token")
				a.logger.Debug("token validation failed",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				apierror.Unauthorized("Invalid or expired token").WriteJSON(w)
				return
			}

			// Revoked sessions fail even when the token itself is valid
			if a.sessions != nil && claims.SessionID != "" {
				if _, err := a.sessions.GetSession(r.Context(), claims.UserID, claims.SessionID); err != nil {
					RecordAuthFailure("session_revoked")
					apierror.Unauthorized("Session has been revoked").WriteJSON(w)
					return
				}
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads the bearer token from the request.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	// WebSocket fallback
	return r.URL.Query().Get("token")
}

// =============================================================================
// Context Getters
// =============================================================================

// GetUserID extracts the user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts the caller's role from context.
func GetRole(ctx context.Context) string {
	if role, ok := ctx.Value(RoleKey).(string); ok {
		return role
	}
	return ""
}

// GetEmail extracts the user email from context.
func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// GetSessionID extracts the session ID from context.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// RequireRole checks if the caller has one of the required roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole := GetRole(r.Context())
			if userRole == "" {
				apierror.Forbidden("No role assigned").WriteJSON(w)
				return
			}

			for _, required := range roles {
				if userRole == required {
					next.ServeHTTP(w, r)
					return
				}
			}

			apierror.Forbidden("Insufficient permissions").WriteJSON(w)
		})
	}
}
