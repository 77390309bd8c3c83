package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planforge/api/internal/infra/http/handler"
	"github.com/planforge/api/internal/infra/websocket"
)

// registerHealthRoutes registers health check endpoints.
func registerHealthRoutes(router Router, h *handler.HealthHandler) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
}

// registerWebSocketRoutes registers the WebSocket endpoint for real-time
// communication.
//
// Channels follow the format: {type}:{id}
//   - user:{id} - per-user events (plan progress, onboarding nudges)
//   - plan:{project_id} - plan generation progress for a project
//
// Authentication: Bearer token in the Authorization header, or ?token= for
// browsers that cannot set headers during the upgrade.
func registerWebSocketRoutes(
	router Router,
	h *websocket.Handler,
	authMiddleware Middleware,
) {
	router.Group("/api/v1/ws", func(r Router) {
		r.GET("/", h.ServeWS)
	}, authMiddleware)
}
