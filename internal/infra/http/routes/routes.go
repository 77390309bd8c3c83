// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	"net/http"

	"github.com/planforge/api/internal/config"
	infrahttp "github.com/planforge/api/internal/infra/http"
	"github.com/planforge/api/internal/infra/http/handler"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/internal/infra/websocket"
	"github.com/planforge/api/pkg/logger"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Onboarding *handler.OnboardingHandler
	Access     *handler.AccessHandler
	Project    *handler.ProjectHandler
	Plan       *handler.PlanHandler
	AdminUser  *handler.AdminUserHandler

	// WebSocket handler for real-time plan generation progress
	WebSocket *websocket.Handler
}

// Register registers all application routes.
// This keeps route definitions in the infrastructure layer, not in main.
//
// Routes are organized across multiple files by domain:
//   - auth.go: Registration, login, token lifecycle
//   - users.go: Profile, password, settings
//   - onboarding.go: Onboarding steps, skip, feature introductions
//   - access.go: Permission checks and resource sharing
//   - projects.go: Project CRUD and plan generation
//   - admin.go: Account administration
//   - misc.go: Health, metrics, WebSocket
func Register(
	router Router,
	h Handlers,
	cfg *config.Config,
	log *logger.Logger,
	authenticator *middleware.Authenticator,
) {
	authMiddleware := authenticator.Middleware()

	// Auth endpoints get their own per-IP rate limits on top of the global
	// limiter to slow credential stuffing.
	var authRateLimiter *middleware.AuthRateLimiter
	if cfg.RateLimit.Enabled {
		authRateLimiter = middleware.NewAuthRateLimiter(middleware.DefaultAuthRateLimitConfig(), log)
	}

	// Health routes (public)
	registerHealthRoutes(router, h.Health)

	// Auth routes (mostly public, logout requires a token)
	registerAuthRoutes(router, h.Auth, authMiddleware, authRateLimiter)

	// User routes (protected)
	if h.User != nil {
		registerUserRoutes(router, h.User, authMiddleware, authRateLimiter)
	}

	// Onboarding routes (protected)
	if h.Onboarding != nil {
		registerOnboardingRoutes(router, h.Onboarding, authMiddleware)
	}

	// Access control routes (protected)
	if h.Access != nil {
		registerAccessRoutes(router, h.Access, authMiddleware)
	}

	// Project and plan routes (protected)
	if h.Project != nil {
		registerProjectRoutes(router, h.Project, h.Plan, authMiddleware)
	}

	// Admin routes (protected, admin role only)
	if h.AdminUser != nil {
		registerAdminRoutes(router, h.AdminUser, authMiddleware)
	}

	// WebSocket endpoint for real-time plan progress (protected)
	if h.WebSocket != nil {
		registerWebSocketRoutes(router, h.WebSocket, authMiddleware)
	}
}

// ChainFunc wraps a handler function with middleware(s).
// Returns the final handler after applying all middleware in order.
func ChainFunc(handler http.HandlerFunc, middlewares ...Middleware) http.Handler {
	return infrahttp.ChainFunc(handler, middlewares...)
}
