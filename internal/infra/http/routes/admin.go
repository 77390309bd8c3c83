package routes

import (
	"github.com/planforge/api/internal/infra/http/handler"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/domain/role"
)

// registerAdminRoutes registers account administration endpoints. The whole
// group requires the admin role on top of authentication.
func registerAdminRoutes(
	router Router,
	h *handler.AdminUserHandler,
	authMiddleware Middleware,
) {
	router.Group("/api/v1/admin/users", func(r Router) {
		r.GET("/", h.List)
		r.GET("/{id}", h.Get)
		r.PUT("/{id}/role", h.ChangeRole)
		r.PUT("/{id}/status", h.ChangeStatus)
	}, authMiddleware, middleware.RequireRole(role.Admin))
}
