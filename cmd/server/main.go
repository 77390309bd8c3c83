package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/internal/infra/http"
	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/internal/infra/http/routes"
	"github.com/planforge/api/internal/infra/jobs"
	"github.com/planforge/api/internal/infra/postgres"
	"github.com/planforge/api/internal/infra/redis"
	"github.com/planforge/api/pkg/logger"
)

// @title           PlanForge API
// @version         1.0
// @description     AI-assisted project planning platform API

// @contact.name   PlanForge Team
// @contact.url    https://github.com/planforge/api

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

// Command line flags.
var (
	showRoutes  = flag.Bool("routes", false, "Print all registered routes and exit")
	routeFormat = flag.String("route-format", "table", "Route output format: table, json, csv, simple")
	routeMethod = flag.String("route-method", "", "Filter routes by HTTP method")
	routePath   = flag.String("route-path", "", "Filter routes containing this path")
	routeSort   = flag.String("route-sort", "path", "Sort routes by: path, method, handler")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// ==========================================================================
	// Configuration & Logger
	// ==========================================================================
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	defer func() { _ = log.Close() }() // flush async log buffer last
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	// ==========================================================================
	// Infrastructure
	// ==========================================================================
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	stopPoolStats := redis.StartPoolStatsCollector(ctx, redisClient, 15*time.Second)
	defer stopPoolStats()

	// ==========================================================================
	// Job Queue
	// ==========================================================================
	jobClient, err := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer closeWithLog(jobClient, "job client", log)

	// ==========================================================================
	// Repositories & Services
	// ==========================================================================
	repos := NewRepositories(db)
	log.Info("repositories initialized")

	services, err := NewServices(ctx, &ServiceDeps{
		Config:        cfg,
		Log:           log,
		Repos:         repos,
		RedisClient:   redisClient,
		EmailEnqueuer: jobs.NewEmailEnqueuerAdapter(jobClient),
	})
	if err != nil {
		log.Error("failed to initialize services", "error", err)
		return 1
	}
	log.Info("services initialized")

	// ==========================================================================
	// Handlers
	// ==========================================================================
	handlers := NewHandlers(cfg, log, db, redisClient, services)

	// ==========================================================================
	// WebSocket Hub
	// ==========================================================================
	wsCtx, wsCancel := context.WithCancel(ctx)
	defer wsCancel()

	go services.WebSocketHub.Run(wsCtx)
	log.Info("websocket hub started")

	// ==========================================================================
	// HTTP Server
	// ==========================================================================
	authenticator := middleware.NewAuthenticator(services.JWTGenerator, log,
		middleware.WithSessionChecker(services.TokenStore),
	)

	var serverOpts []http.ServerOption
	if cfg.RateLimit.Enabled {
		perMinute := int(cfg.RateLimit.RequestsPerSec * 60)
		if perMinute > 0 {
			apiLimiter, rlErr := redis.NewRateLimiter(redisClient, "ratelimit:api", perMinute, time.Minute, log)
			if rlErr != nil {
				log.Error("failed to initialize distributed rate limiter", "error", rlErr)
				return 1
			}
			serverOpts = append(serverOpts, http.WithDistributedRateLimiter(redis.NewMiddlewareAdapter(apiLimiter)))
		}
	}

	server := http.NewServer(cfg, log, serverOpts...)
	routes.Register(server.Router(), handlers, cfg, log, authenticator)

	// Handle --routes flag
	if *showRoutes {
		stats := http.CollectRoutes(server.Router())
		filters := http.RouteFilters{
			Method: *routeMethod,
			Path:   *routePath,
			SortBy: *routeSort,
		}
		http.PrintRoutes(os.Stdout, stats, *routeFormat, filters)
		return 0
	}

	// ==========================================================================
	// Workers
	// ==========================================================================
	workers, err := NewWorkers(cfg, log, jobClient, services)
	if err != nil {
		log.Error("failed to initialize workers", "error", err)
		return 1
	}

	if err := workers.Start(); err != nil {
		log.Error("failed to start workers", "error", err)
		return 1
	}

	// ==========================================================================
	// Start Server
	// ==========================================================================
	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	// ==========================================================================
	// Graceful Shutdown
	// ==========================================================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop WebSocket hub first (closes all connections)
	wsCancel()
	log.Info("websocket hub stopped")

	// Stop workers
	workers.Stop()

	// Then stop server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

// =============================================================================
// Helper Functions
// =============================================================================

func initLogger(cfg *config.Config) *logger.Logger {
	var log *logger.Logger
	if cfg.App.Env == "production" {
		logger.RegisterMetrics(nil)
		// SamplingThreshold is validated to be non-negative in config validation
		//nolint:gosec // G115: safe conversion, value validated non-negative in config.Validate()
		threshold := uint64(cfg.Log.SamplingThreshold)
		log = logger.NewProductionWithConfig(logger.SamplingConfig{
			Enabled:       cfg.Log.SamplingEnabled,
			Tick:          time.Second,
			Threshold:     threshold,
			Rate:          cfg.Log.SamplingRate,
			ErrorRate:     cfg.Log.ErrorSamplingRate,
			EnableMetrics: true,
		})
	} else {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
