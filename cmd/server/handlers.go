package main

import (
	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/internal/infra/http/handler"
	"github.com/planforge/api/internal/infra/http/routes"
	"github.com/planforge/api/internal/infra/postgres"
	"github.com/planforge/api/internal/infra/redis"
	"github.com/planforge/api/internal/infra/websocket"
	"github.com/planforge/api/pkg/logger"
)

// NewHandlers creates all HTTP handlers.
func NewHandlers(cfg *config.Config, log *logger.Logger, db *postgres.DB, redisClient *redis.Client, services *Services) routes.Handlers {
	return routes.Handlers{
		Health: handler.NewHealthHandler(
			handler.WithDatabase(db),
			handler.WithRedis(redisClient),
		),
		Auth: handler.NewAuthHandler(services.User, cfg.Auth, log,
			handler.WithSessionStore(services.TokenStore),
		),
		User:       handler.NewUserHandler(services.User, log),
		Onboarding: handler.NewOnboardingHandler(services.Onboarding, log),
		Access:     handler.NewAccessHandler(services.Access, log),
		Project:    handler.NewProjectHandler(services.Project, services.User, log),
		Plan:       handler.NewPlanHandler(services.Plan, services.User, log),
		AdminUser:  handler.NewAdminUserHandler(services.User, log),
		WebSocket: websocket.NewHandler(services.WebSocketHub, log,
			websocket.WithAllowedOrigins(cfg.CORS.AllowedOrigins),
		),
	}
}
