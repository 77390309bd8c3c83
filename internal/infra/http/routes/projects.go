package routes

import (
	"github.com/planforge/api/internal/infra/http/handler"
)

// registerProjectRoutes registers project CRUD and plan endpoints. Ownership
// and sharing checks run inside the services against the caller's resolved
// permissions, so the routes only require authentication.
func registerProjectRoutes(
	router Router,
	projects *handler.ProjectHandler,
	plans *handler.PlanHandler,
	authMiddleware Middleware,
) {
	router.Group("/api/v1/projects", func(r Router) {
		r.POST("/", projects.Create)
		r.GET("/", projects.List)
		r.GET("/{id}", projects.Get)
		r.PATCH("/{id}", projects.Update)
		r.DELETE("/{id}", projects.Delete)

		if plans != nil {
			r.POST("/{id}/plan", plans.Generate)
			r.GET("/{id}/plan", plans.Get)
			r.POST("/{id}/plan/refine", plans.Refine)
			r.GET("/{id}/plan/export", plans.Export)
		}
	}, authMiddleware)
}
