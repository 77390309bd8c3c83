package routes

import (
	"github.com/planforge/api/internal/infra/http/handler"
)

// registerOnboardingRoutes registers the onboarding flow endpoints. Each
// user can only see and mutate their own state, so no extra permission
// checks beyond authentication.
func registerOnboardingRoutes(
	router Router,
	h *handler.OnboardingHandler,
	authMiddleware Middleware,
) {
	router.Group("/api/v1/onboarding", func(r Router) {
		r.GET("/", h.GetState)
		r.PUT("/steps/{step}", h.UpdateStep)
		r.POST("/skip", h.Skip)
		r.PUT("/features/{feature}", h.UpdateFeature)
	}, authMiddleware)
}
