package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/validator"
)

// SessionStore persists server-side session state so issued tokens can be
// revoked before they expire. A nil store leaves authentication stateless.
type SessionStore interface {
	StoreSession(ctx context.Context, userID, sessionID string, data map[string]string, ttl time.Duration) error
	DeleteSession(ctx context.Context, userID, sessionID string) error
	DeleteAllUserSessions(ctx context.Context, userID string) error
}

// AuthHandler handles registration, login and token lifecycle requests.
type AuthHandler struct {
	userService  *app.UserService
	sessions     SessionStore
	authConfig   config.AuthConfig
	cookieConfig CookieConfig
	validator    *validator.Validator
	logger       *logger.Logger
}

// AuthHandlerOption configures the auth handler.
type AuthHandlerOption func(*AuthHandler)

// WithSessionStore enables server-side sessions for issued tokens.
func WithSessionStore(store SessionStore) AuthHandlerOption {
	return func(h *AuthHandler) {
		h.sessions = store
	}
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(userService *app.UserService, authConfig config.AuthConfig, log *logger.Logger, opts ...AuthHandlerOption) *AuthHandler {
	h := &AuthHandler{
		userService:  userService,
		authConfig:   authConfig,
		cookieConfig: NewCookieConfig(authConfig),
		validator:    validator.New(),
		logger:       log.With("handler", "auth"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// UserInfo contains the user fields exposed on auth responses.
type UserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func userInfoOf(u *user.User) UserInfo {
	return UserInfo{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role(),
	}
}

// RegisterResponse is the response body for user registration.
type RegisterResponse struct {
	User    UserInfo `json:"user"`
	Message string   `json:"message"`
}

// Register handles user registration.
// @Summary      Register user
// @Description  Registers a new user with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      app.RegisterInput  true  "Registration data"
// @Success      201  {object}  RegisterResponse
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.authConfig.AllowRegistration {
		apierror.Forbidden("Registration is disabled").WriteJSON(w)
		return
	}

	var req app.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	u, err := h.userService.Register(r.Context(), req)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	resp := RegisterResponse{
		User:    userInfoOf(u),
		Message: "Registration successful",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// LoginResponse is the response body for login.
// Note: refresh_token is also set as an httpOnly cookie (XSS protection).
type LoginResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token,omitempty"` // Also set in httpOnly cookie
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         UserInfo `json:"user"`
}

// Login handles user login.
// @Summary      User login
// @Description  Authenticates a user and returns an access/refresh token pair
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      app.LoginInput  true  "Login credentials"
// @Success      200  {object}  LoginResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req app.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	result, err := h.userService.Login(r.Context(), req)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	if h.sessions != nil {
		data := map[string]string{
			"ip_address": getClientIP(r),
			"user_agent": r.UserAgent(),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := h.sessions.StoreSession(r.Context(), result.User.ID.String(), result.SessionID, data, h.authConfig.SessionDuration); err != nil {
			h.logger.Error("failed to store session",
				"user_id", result.User.ID.String(),
				"error", err,
			)
			apierror.InternalError(err).WriteJSON(w)
			return
		}
	}

	refreshExpiresAt := time.Now().Add(h.authConfig.RefreshTokenDuration)
	h.cookieConfig.SetRefreshToken(w, result.Tokens.RefreshToken, refreshExpiresAt)

	resp := LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken, // Also in body for non-browser clients
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.authConfig.AccessTokenDuration.Seconds()),
		User:         userInfoOf(result.User),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// RefreshTokenRequest is the request body for token refresh.
// refresh_token can be omitted if sent via httpOnly cookie.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"` // Optional if cookie is present
}

// RefreshTokenResponse is the response body for token refresh.
// Note: the new refresh_token is also set in an httpOnly cookie.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"` // Also set in httpOnly cookie
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken handles token refresh.
// @Summary      Refresh token
// @Description  Exchanges a refresh token for a new token pair
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      RefreshTokenRequest  true  "Refresh token data"
// @Success      200  {object}  RefreshTokenResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if r.Body != nil {
		// Body is optional when the token arrives via cookie
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	// httpOnly cookie takes precedence over the body
	refreshToken := h.cookieConfig.RefreshTokenFrom(r)
	if refreshToken == "" {
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		apierror.BadRequest("refresh_token is required (in body or cookie)").WriteJSON(w)
		return
	}

	pair, err := h.userService.RefreshTokens(r.Context(), refreshToken)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	refreshExpiresAt := time.Now().Add(h.authConfig.RefreshTokenDuration)
	h.cookieConfig.SetRefreshToken(w, pair.RefreshToken, refreshExpiresAt)

	resp := RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.authConfig.AccessTokenDuration.Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Logout handles user logout.
// @Summary      User logout
// @Description  Logs out the current user and revokes the session
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	if h.sessions != nil && userID != "" && sessionID != "" {
		if err := h.sessions.DeleteSession(r.Context(), userID, sessionID); err != nil {
			// Logout stays idempotent even when revocation fails
			h.logger.Error("failed to delete session",
				"user_id", userID,
				"session_id", sessionID,
				"error", err,
			)
		}
	}

	h.cookieConfig.ClearRefreshToken(w)
	h.cookieConfig.ClearAccessToken(w)

	h.logger.Info("logout successful",
		"user_id", userID,
		"session_id", sessionID,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Logged out successfully",
	})
}

// LogoutAll revokes every session of the authenticated user.
// @Summary      Logout everywhere
// @Description  Revokes all sessions of the current user
// @Tags         Authentication
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		apierror.Unauthorized("User not authenticated").WriteJSON(w)
		return
	}

	if h.sessions != nil {
		if err := h.sessions.DeleteAllUserSessions(r.Context(), userID); err != nil {
			apierror.InternalError(err).WriteJSON(w)
			return
		}
	}

	h.cookieConfig.ClearRefreshToken(w)
	h.cookieConfig.ClearAccessToken(w)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "All sessions revoked successfully",
	})
}

// ForgotPasswordRequest is the request body for requesting a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword issues a password reset email.
// @Summary      Request password reset
// @Description  Sends a password reset link to the given email if an account exists
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      ForgotPasswordRequest  true  "Account email"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	if err := h.userService.RequestPasswordReset(r.Context(), req.Email, getClientIP(r)); err != nil {
		if errors.Is(err, app.ErrRecoveryUnavailable) {
			apierror.ServiceUnavailable("Password reset is not available").WriteJSON(w)
			return
		}
		// The response never reveals whether the address has an account
		h.logger.Error("password reset request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "If an account exists for that email, a reset link has been sent",
	})
}

// ResetPasswordRequest is the request body for completing a password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=128"`
}

// ResetPassword redeems a reset token and sets a new password.
// @Summary      Reset password
// @Description  Sets a new password using a reset token and revokes all sessions
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      ResetPasswordRequest  true  "Reset token and new password"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	u, err := h.userService.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, app.ErrRecoveryUnavailable) {
			apierror.ServiceUnavailable("Password reset is not available").WriteJSON(w)
			return
		}
		h.handleAuthError(w, err)
		return
	}

	// A reset proves control of the mailbox, not of existing sessions
	if h.sessions != nil {
		if err := h.sessions.DeleteAllUserSessions(r.Context(), u.ID.String()); err != nil {
			h.logger.Error("failed to revoke sessions after reset",
				"user_id", u.ID.String(),
				"error", err,
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Password has been reset, please log in again",
	})
}

// VerifyEmailRequest is the request body for email verification.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyEmail redeems a verification token.
// @Summary      Verify email
// @Description  Marks the account email as verified using an emailed token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyEmailRequest  true  "Verification token"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.ValidationFailed("Validation failed", err).WriteJSON(w)
		return
	}

	if _, err := h.userService.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, app.ErrRecoveryUnavailable) {
			apierror.ServiceUnavailable("Email verification is not available").WriteJSON(w)
			return
		}
		h.handleAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Email verified successfully",
	})
}

// handleAuthError maps authentication errors to HTTP responses.
func (h *AuthHandler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		apierror.Unauthorized("Invalid email or password").WriteJSON(w)
	case errors.Is(err, user.ErrUserSuspended), errors.Is(err, user.ErrUserInactive):
		apierror.Forbidden("Account is not active").WriteJSON(w)
	case errors.Is(err, user.ErrPasswordTooWeak):
		apierror.BadRequest("Password does not meet requirements").WriteJSON(w)
	default:
		apiErr := apierror.FromDomain(err)
		if apiErr.Status >= http.StatusInternalServerError {
			h.logger.Error("auth error", "error", err)
		}
		apiErr.WriteJSON(w)
	}
}
