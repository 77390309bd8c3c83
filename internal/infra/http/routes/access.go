package routes

import (
	"github.com/planforge/api/internal/infra/http/handler"
)

// registerAccessRoutes registers permission evaluation and resource sharing
// endpoints. Authorization rules live in the access service; the routes only
// require a valid token.
func registerAccessRoutes(
	router Router,
	h *handler.AccessHandler,
	authMiddleware Middleware,
) {
	router.Group("/api/v1/access", func(r Router) {
		r.POST("/check", h.CheckPermission)
		r.POST("/share", h.ShareResource)
	}, authMiddleware)
}
