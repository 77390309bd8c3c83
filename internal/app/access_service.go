package app

import (
	"context"
	"fmt"
	"time"

	"github.com/planforge/api/internal/infra/redis"
	"github.com/planforge/api/internal/metrics"
	"github.com/planforge/api/pkg/domain/permission"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

const (
	permCachePrefix = "role_perms"
	permCacheTTL    = 5 * time.Minute
)

// AccessService answers authorization questions for the API layer.
// Permission sets are resolved from the role registry on every check
// (optionally through a short-lived Redis cache keyed by role name),
// so role changes take effect without token reissue.
type AccessService struct {
	users    user.Repository
	resolver *role.Resolver
	cache    *redis.Cache[[]string]
	logger   *logger.Logger
}

// AccessServiceOption configures optional AccessService dependencies.
type AccessServiceOption func(*AccessService)

// WithPermissionCache enables Redis-backed caching of resolved
// permission sets.
func WithPermissionCache(cache *redis.Cache[[]string]) AccessServiceOption {
	return func(s *AccessService) {
		s.cache = cache
	}
}

// NewAccessService creates a new AccessService.
func NewAccessService(users user.Repository, resolver *role.Resolver, log *logger.Logger, opts ...AccessServiceOption) *AccessService {
	s := &AccessService{
		users:    users,
		resolver: resolver,
		logger:   log.With("service", "access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ====== PERMISSION CHECKS ======

// CheckPermissionInput holds the parameters of a single authorization check.
type CheckPermissionInput struct {
	UserID     string `json:"userId" validate:"required,uuid"`
	Permission string `json:"permission" validate:"required"`
	ResourceID string `json:"resourceId,omitempty"`
}

// CheckPermission reports whether the user holds the required permission,
// optionally narrowed to a specific resource. The check fails closed: a
// malformed or unknown user id, an unknown role, an unrecognized scope and
// even a repository failure all deny rather than error, so callers always
// get an allowed/denied answer. Only a missing permission argument is a
// caller bug and surfaces as ErrValidation.
func (s *AccessService) CheckPermission(ctx context.Context, input CheckPermissionInput) (bool, error) {
	start := time.Now()

	if input.Permission == "" {
		return false, fmt.Errorf("%w: permission is required", shared.ErrValidation)
	}

	userID, err := shared.IDFromString(input.UserID)
	if err != nil {
		s.logger.Warn("permission check denied for malformed user id",
			"user_id", input.UserID,
			"permission", input.Permission,
		)
		return false, nil
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("permission check denied, could not load user",
			"user_id", input.UserID,
			"permission", input.Permission,
			"error", err,
		)
		metrics.PermissionChecksTotal.WithLabelValues("unknown", "denied").Inc()
		return false, nil
	}

	allowed := s.check(ctx, u, permission.Permission(input.Permission), input.ResourceID)

	metrics.PermissionCheckDuration.Observe(time.Since(start).Seconds())
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	metrics.PermissionChecksTotal.WithLabelValues(u.Role(), outcome).Inc()

	return allowed, nil
}

// CheckPermissionForUser is CheckPermission for an already-loaded user,
// used by the HTTP middleware which carries the user in request context.
func (s *AccessService) CheckPermissionForUser(ctx context.Context, u *user.User, required permission.Permission, resourceID string) bool {
	start := time.Now()
	allowed := s.check(ctx, u, required, resourceID)

	metrics.PermissionCheckDuration.Observe(time.Since(start).Seconds())
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	metrics.PermissionChecksTotal.WithLabelValues(u.Role(), outcome).Inc()

	return allowed
}

// RequirePermission returns shared.ErrForbidden when the check denies.
func (s *AccessService) RequirePermission(ctx context.Context, u *user.User, required permission.Permission, resourceID string) error {
	if s.CheckPermissionForUser(ctx, u, required, resourceID) {
		return nil
	}
	s.logger.Warn("permission denied",
		"user_id", u.ID.String(),
		"role", u.Role(),
		"permission", required.String(),
		"resource_id", resourceID,
	)
	return fmt.Errorf("%w: missing permission %s", shared.ErrForbidden, required)
}

func (s *AccessService) check(ctx context.Context, u *user.User, required permission.Permission, resourceID string) bool {
	if u == nil {
		return false
	}

	perms := s.resolve(ctx, u.Role())

	// An unscoped grant satisfies the check regardless of resource.
	if perms.Has(required) {
		return true
	}
	if resourceID == "" {
		return false
	}

	resource, action, scope := required.Parts()
	base := permission.Permission(resource + ":" + action)

	switch scope {
	case "self":
		return resourceID == u.ID.String() && perms.Has(base.Scoped("self"))
	case "own":
		return u.OwnedResources.Contains(resource, resourceID) && perms.Has(base.Scoped("own"))
	case "shared":
		return u.SharedResources.Contains(resource, resourceID) && perms.Has(base.Scoped("shared"))
	case "team":
		// TODO: team scope needs a team membership store; deny until one exists.
		return false
	default:
		return false
	}
}

// resolve returns the effective permission set for a role, consulting the
// cache when one is configured.
func (s *AccessService) resolve(ctx context.Context, roleName string) permission.Set {
	if s.cache == nil {
		return s.resolver.Resolve(roleName)
	}

	cached, err := s.cache.Get(ctx, roleName)
	if err == nil && cached != nil {
		metrics.PermissionCacheHits.WithLabelValues("hit").Inc()
		set := permission.NewSet()
		for _, p := range *cached {
			set.Add(permission.Permission(p))
		}
		return set
	}
	metrics.PermissionCacheHits.WithLabelValues("miss").Inc()

	set := s.resolver.Resolve(roleName)
	if err := s.cache.Set(ctx, roleName, set.Strings()); err != nil {
		s.logger.Debug("failed to cache permission set",
			"role", roleName,
			"error", err,
		)
	}
	return set
}

// ====== RESOURCE OWNERSHIP ======

// RegisterOwnedResource records that the user owns a resource, backing
// later "own"-scoped checks.
func (s *AccessService) RegisterOwnedResource(ctx context.Context, userID shared.ID, resourceType, resourceID string) error {
	if resourceType == "" || resourceID == "" {
		return fmt.Errorf("%w: resource type and id are required", shared.ErrValidation)
	}
	if err := s.users.AddOwnedResource(ctx, userID, resourceType, resourceID); err != nil {
		return fmt.Errorf("failed to register owned resource: %w", err)
	}
	return nil
}

// ShareResourceInput identifies a resource the owner shares with another user.
type ShareResourceInput struct {
	OwnerID      string `json:"ownerId" validate:"required,uuid"`
	TargetUserID string `json:"targetUserId" validate:"required,uuid"`
	ResourceType string `json:"resourceType" validate:"required"`
	ResourceID   string `json:"resourceId" validate:"required"`
}

// ShareResource grants the target user shared access to a resource the
// owner actually owns. The target's sharedResources list backs their
// "shared"-scoped permission checks.
func (s *AccessService) ShareResource(ctx context.Context, input ShareResourceInput) error {
	ownerID, err := shared.IDFromString(input.OwnerID)
	if err != nil {
		return fmt.Errorf("%w: invalid owner id format", shared.ErrValidation)
	}
	targetID, err := shared.IDFromString(input.TargetUserID)
	if err != nil {
		return fmt.Errorf("%w: invalid target user id format", shared.ErrValidation)
	}
	if ownerID.Equals(targetID) {
		return fmt.Errorf("%w: cannot share a resource with yourself", shared.ErrValidation)
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load owner: %w", err)
	}
	if !owner.OwnedResources.Contains(input.ResourceType, input.ResourceID) {
		return fmt.Errorf("%w: only the owner can share a resource", shared.ErrForbidden)
	}

	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return fmt.Errorf("failed to load target user: %w", err)
	}

	if err := s.users.AddSharedResource(ctx, targetID, input.ResourceType, input.ResourceID); err != nil {
		return fmt.Errorf("failed to share resource: %w", err)
	}

	metrics.ResourceSharesTotal.WithLabelValues(input.ResourceType).Inc()
	s.logger.Info("resource shared",
		"owner_id", ownerID.String(),
		"target_user_id", targetID.String(),
		"resource_type", input.ResourceType,
		"resource_id", input.ResourceID,
	)
	return nil
}
