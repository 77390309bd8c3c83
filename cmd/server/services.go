package main

import (
	"context"
	"fmt"
	"time"

	"github.com/planforge/api/internal/app"
	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/internal/infra/llm"
	"github.com/planforge/api/internal/infra/redis"
	"github.com/planforge/api/internal/infra/storage"
	"github.com/planforge/api/internal/infra/websocket"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/email"
	"github.com/planforge/api/pkg/jwt"
	"github.com/planforge/api/pkg/logger"
	"github.com/planforge/api/pkg/password"
)

// Services holds all service instances.
type Services struct {
	User       *app.UserService
	Onboarding *app.OnboardingService
	Access     *app.AccessService
	Project    *app.ProjectService
	Plan       *app.PlanService
	Email      *app.EmailService

	JWTGenerator *jwt.Generator
	Resolver     *role.Resolver
	TokenStore   *redis.TokenStore
	WebSocketHub *websocket.Hub
}

// ServiceDeps holds dependencies for service initialization.
type ServiceDeps struct {
	Config        *config.Config
	Log           *logger.Logger
	Repos         *Repositories
	RedisClient   *redis.Client
	EmailEnqueuer app.EmailJobEnqueuer
}

// NewServices creates all service instances.
func NewServices(ctx context.Context, deps *ServiceDeps) (*Services, error) {
	cfg := deps.Config
	log := deps.Log

	jwtGenerator := jwt.NewGenerator(jwt.TokenConfig{
		Secret:               cfg.Auth.JWTSecret,
		Issuer:               cfg.Auth.JWTIssuer,
		AccessTokenDuration:  cfg.Auth.AccessTokenDuration,
		RefreshTokenDuration: cfg.Auth.RefreshTokenDuration,
	})

	hasher := password.New(password.WithPolicy(password.Policy{
		MinLength:      cfg.Auth.PasswordMinLength,
		RequireUpper:   cfg.Auth.PasswordRequireUpper,
		RequireLower:   cfg.Auth.PasswordRequireLower,
		RequireNumber:  cfg.Auth.PasswordRequireNumber,
		RequireSpecial: cfg.Auth.PasswordRequireSpecial,
	}))

	resolver := role.NewResolver(role.Builtin())

	tokenStore, err := redis.NewTokenStore(deps.RedisClient, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	// Resolved role permissions rarely change, so a short shared cache takes
	// the resolver off the hot path of every request.
	permCache, err := redis.NewCache[[]string](deps.RedisClient, "role_perms", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("failed to create permission cache: %w", err)
	}

	accessService := app.NewAccessService(deps.Repos.User, resolver, log,
		app.WithPermissionCache(permCache),
	)

	var sender email.Sender
	if cfg.SMTP.Enabled {
		sender = email.NewSMTPSender(email.Config{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			User:       cfg.SMTP.User,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			FromName:   cfg.SMTP.FromName,
			TLS:        cfg.SMTP.TLS,
			SkipVerify: cfg.SMTP.SkipVerify,
			Timeout:    cfg.SMTP.Timeout,
		})
	} else {
		log.Warn("SMTP not configured, emails will be dropped")
		sender = email.NewNoOpSender()
	}
	sender = email.NewLoggingSender(sender, log)
	emailService := app.NewEmailService(sender, cfg.SMTP, cfg.App.Name, log)

	userService := app.NewUserService(deps.Repos.User, hasher, jwtGenerator, log,
		app.WithUserEmailEnqueuer(deps.EmailEnqueuer),
		app.WithActionTokenStore(tokenStore),
	)

	onboardingService := app.NewOnboardingService(deps.Repos.User, log,
		app.WithOnboardingEmailEnqueuer(deps.EmailEnqueuer),
	)

	projectService := app.NewProjectService(deps.Repos.Project, deps.Repos.User, resolver, accessService, log)

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	log.Info("LLM provider initialized",
		"provider", provider.Name(),
		"model", provider.Model(),
	)

	hub := websocket.NewHub(log)
	hub.SetAuthorizeFunc(newChannelAuthorizer(deps.Repos, log))

	planOpts := []app.PlanServiceOption{
		app.WithPlanProgressNotifier(websocket.NewPlanProgressNotifier(hub)),
	}
	if cfg.Export.IsConfigured() {
		exporter, err := storage.NewS3Exporter(ctx, cfg.Export, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create plan exporter: %w", err)
		}
		planOpts = append(planOpts, app.WithPlanExporter(exporter))
		log.Info("plan export enabled", "bucket", cfg.Export.Bucket)
	}
	planService := app.NewPlanService(deps.Repos.Project, accessService, provider, log, planOpts...)

	return &Services{
		User:         userService,
		Onboarding:   onboardingService,
		Access:       accessService,
		Project:      projectService,
		Plan:         planService,
		Email:        emailService,
		JWTGenerator: jwtGenerator,
		Resolver:     resolver,
		TokenStore:   tokenStore,
		WebSocketHub: hub,
	}, nil
}

// newChannelAuthorizer builds the websocket subscription check. User channels
// only match the connection's own id; plan channels require the project to be
// owned by or shared with the user.
func newChannelAuthorizer(repos *Repositories, log *logger.Logger) websocket.AuthorizeFunc {
	return func(client *websocket.Client, channel string) bool {
		channelType, id := websocket.ParseChannel(channel)
		if id == "" {
			return false
		}

		switch channelType {
		case websocket.ChannelTypeUser:
			return id == client.UserID

		case websocket.ChannelTypePlan:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			projectID, err := shared.IDFromString(id)
			if err != nil {
				return false
			}
			p, err := repos.Project.GetByID(ctx, projectID)
			if err != nil {
				return false
			}
			if p.OwnerID.String() == client.UserID {
				return true
			}

			userID, err := shared.IDFromString(client.UserID)
			if err != nil {
				return false
			}
			u, err := repos.User.GetByID(ctx, userID)
			if err != nil {
				log.Warn("channel authorization lookup failed",
					"user_id", client.UserID,
					"channel", channel,
					"error", err,
				)
				return false
			}
			return u.SharedResources.Contains("project", id)

		default:
			return false
		}
	}
}
