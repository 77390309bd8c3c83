package routes

import (
	"github.com/planforge/api/internal/infra/http/handler"
	"github.com/planforge/api/internal/infra/http/middleware"
)

// registerUserRoutes registers profile and settings endpoints. All routes
// require authentication; the password change additionally sits behind the
// stricter password rate limit.
func registerUserRoutes(
	router Router,
	h *handler.UserHandler,
	authMiddleware Middleware,
	rateLimiter *middleware.AuthRateLimiter,
) {
	router.Group("/api/v1/users/me", func(r Router) {
		r.GET("/", h.Me)
		r.PATCH("/", h.UpdateProfile)

		if rateLimiter != nil {
			r.PUT("/password", h.ChangePassword, rateLimiter.PasswordMiddleware())
		} else {
			r.PUT("/password", h.ChangePassword)
		}

		r.GET("/settings", h.GetSettings)
		r.PUT("/settings/{section}", h.UpdateSettingsSection)
	}, authMiddleware)
}
