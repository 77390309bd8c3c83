package app

import (
	"context"
	"fmt"

	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// ProjectService manages project lifecycle. Creating a project registers it
// in the owner's resource list so "own"-scoped permission checks work, and
// enforces the per-role project quota.
type ProjectService struct {
	projects project.Repository
	users    user.Repository
	resolver *role.Resolver
	access   *AccessService
	logger   *logger.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects project.Repository, users user.Repository, resolver *role.Resolver, access *AccessService, log *logger.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		users:    users,
		resolver: resolver,
		access:   access,
		logger:   log.With("service", "project"),
	}
}

// ====== CRUD ======

// CreateProjectInput contains data for creating a project.
type CreateProjectInput struct {
	OwnerID     string `json:"ownerId" validate:"required,uuid"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// CreateProject creates a draft project after checking the owner's quota.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*project.Project, error) {
	ownerID, err := shared.IDFromString(input.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid owner id format", shared.ErrValidation)
	}

	name := sanitizeString(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", shared.ErrValidation)
	}

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}

	limits := s.resolver.Limits(owner.Role())
	count, err := s.projects.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	if !limits.AllowsProjects(int(count)) {
		s.logger.Warn("project quota reached",
			"user_id", ownerID.String(),
			"role", owner.Role(),
			"count", count,
			"max", limits.MaxProjects,
		)
		return nil, fmt.Errorf("%w: role %s allows at most %d projects", project.ErrProjectLimit, owner.Role(), limits.MaxProjects)
	}

	p := project.New(ownerID, name, sanitizeString(input.Description))
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	if err := s.access.RegisterOwnedResource(ctx, ownerID, project.ResourceType, p.ID.String()); err != nil {
		s.logger.Error("failed to register project ownership",
			"project_id", p.ID.String(),
			"user_id", ownerID.String(),
			"error", err,
		)
	}

	s.logger.Info("project created",
		"project_id", p.ID.String(),
		"user_id", ownerID.String(),
	)
	return p, nil
}

// GetProject loads a project the actor may read. Owners read through the
// "own" scope, collaborators through "shared".
func (s *ProjectService) GetProject(ctx context.Context, actor *user.User, projectID string) (*project.Project, error) {
	id, err := shared.IDFromString(projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id format", shared.ErrValidation)
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if !s.canRead(ctx, actor, id.String()) {
		return nil, fmt.Errorf("%w: no access to this project", shared.ErrForbidden)
	}
	return p, nil
}

// UpdateProjectInput contains updatable project fields. Nil pointers leave
// the field untouched.
type UpdateProjectInput struct {
	ProjectID   string  `json:"projectId" validate:"required,uuid"`
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *string `json:"status,omitempty" validate:"omitempty,project_status"`
}

// UpdateProject applies a partial update to a project the actor may write.
func (s *ProjectService) UpdateProject(ctx context.Context, actor *user.User, input UpdateProjectInput) (*project.Project, error) {
	id, err := shared.IDFromString(input.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid project id format", shared.ErrValidation)
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if !s.canWrite(ctx, actor, id.String()) {
		return nil, fmt.Errorf("%w: no write access to this project", shared.ErrForbidden)
	}

	if input.Name != nil {
		name := sanitizeString(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: project name cannot be empty", shared.ErrValidation)
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = sanitizeString(*input.Description)
	}
	if input.Status != nil {
		status := project.Status(*input.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: unknown project status %q", shared.ErrValidation, *input.Status)
		}
		p.Status = status
	}

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// DeleteProject removes a project. Only the delete permission through the
// "own" scope (or an unscoped admin grant) qualifies.
func (s *ProjectService) DeleteProject(ctx context.Context, actor *user.User, projectID string) error {
	id, err := shared.IDFromString(projectID)
	if err != nil {
		return fmt.Errorf("%w: invalid project id format", shared.ErrValidation)
	}

	if _, err := s.projects.GetByID(ctx, id); err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	if err := s.access.RequirePermission(ctx, actor, "project:delete:own", id.String()); err != nil {
		return err
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("project deleted",
		"project_id", id.String(),
		"user_id", actor.ID.String(),
	)
	return nil
}

// ListProjects returns the actor's own projects.
func (s *ProjectService) ListProjects(ctx context.Context, actor *user.User, limit, offset int) ([]*project.Project, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	projects, err := s.projects.ListByOwner(ctx, actor.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	total, err := s.projects.CountByOwner(ctx, actor.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return projects, total, nil
}

// ====== ACCESS HELPERS ======

func (s *ProjectService) canRead(ctx context.Context, actor *user.User, projectID string) bool {
	return s.access.CheckPermissionForUser(ctx, actor, "project:read:own", projectID) ||
		s.access.CheckPermissionForUser(ctx, actor, "project:read:shared", projectID)
}

func (s *ProjectService) canWrite(ctx context.Context, actor *user.User, projectID string) bool {
	return s.access.CheckPermissionForUser(ctx, actor, "project:update:own", projectID) ||
		s.access.CheckPermissionForUser(ctx, actor, "project:update:shared", projectID)
}
