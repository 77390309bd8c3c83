package routes

import (
	"github.com/planforge/api/internal/infra/http/handler"
	"github.com/planforge/api/internal/infra/http/middleware"
)

// registerAuthRoutes registers registration, login and token endpoints.
// Register and login are public but rate limited per IP. Logout needs a
// valid access token so the session can be revoked.
func registerAuthRoutes(
	router Router,
	h *handler.AuthHandler,
	authMiddleware Middleware,
	rateLimiter *middleware.AuthRateLimiter,
) {
	router.Group("/api/v1/auth", func(r Router) {
		if rateLimiter != nil {
			r.POST("/register", h.Register, rateLimiter.RegisterMiddleware())
			r.POST("/login", h.Login, rateLimiter.LoginMiddleware())
			r.POST("/forgot-password", h.ForgotPassword, rateLimiter.PasswordMiddleware())
			r.POST("/reset-password", h.ResetPassword, rateLimiter.PasswordMiddleware())
		} else {
			r.POST("/register", h.Register)
			r.POST("/login", h.Login)
			r.POST("/forgot-password", h.ForgotPassword)
			r.POST("/reset-password", h.ResetPassword)
		}

		// Refresh and verify validate their own tokens, no auth middleware
		r.POST("/refresh", h.RefreshToken)
		r.POST("/verify-email", h.VerifyEmail)

		r.POST("/logout", h.Logout, authMiddleware)
		r.POST("/logout-all", h.LogoutAll, authMiddleware)
	})
}
