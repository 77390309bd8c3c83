package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// fakeProjectRepo is an in-memory project.Repository for service tests.
type fakeProjectRepo struct {
	projects map[string]*project.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*project.Project)}
}

func (r *fakeProjectRepo) Create(_ context.Context, p *project.Project) error {
	r.projects[p.ID.String()] = p
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id shared.ID) (*project.Project, error) {
	p, ok := r.projects[id.String()]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return p, nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p *project.Project) error {
	if _, ok := r.projects[p.ID.String()]; !ok {
		return project.ErrProjectNotFound
	}
	r.projects[p.ID.String()] = p
	return nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, id shared.ID) error {
	delete(r.projects, id.String())
	return nil
}

func (r *fakeProjectRepo) ListByOwner(_ context.Context, ownerID shared.ID, _, _ int) ([]*project.Project, error) {
	var out []*project.Project
	for _, p := range r.projects {
		if p.OwnerID.Equals(ownerID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) CountByOwner(_ context.Context, ownerID shared.ID) (int64, error) {
	var n int64
	for _, p := range r.projects {
		if p.OwnerID.Equals(ownerID) {
			n++
		}
	}
	return n, nil
}

func testProjectService(users ...*user.User) (*ProjectService, *fakeProjectRepo, *fakeUserRepo) {
	userRepo := newFakeUserRepo(users...)
	projectRepo := newFakeProjectRepo()
	resolver := role.NewResolver(role.Builtin())
	access := NewAccessService(userRepo, resolver, logger.NewNop())
	svc := NewProjectService(projectRepo, userRepo, resolver, access, logger.NewNop())
	return svc, projectRepo, userRepo
}

func TestProjectService_CreateProject(t *testing.T) {
	owner := testUser(role.User)
	svc, _, repo := testProjectService(owner)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID:     owner.ID.String(),
		Name:        "  Demo Project ",
		Description: "First plan",
	})
	require.NoError(t, err)
	assert.Equal(t, "Demo Project", p.Name)
	assert.Equal(t, project.StatusDraft, p.Status)
	assert.False(t, p.HasPlan())

	stored, err := repo.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, stored.OwnedResources.Contains(project.ResourceType, p.ID.String()))
}

func TestProjectService_CreateProject_QuotaPerRole(t *testing.T) {
	owner := testUser(role.User)
	svc, _, _ := testProjectService(owner)
	ctx := context.Background()

	// base role allows five projects
	for i := 0; i < 5; i++ {
		_, err := svc.CreateProject(ctx, CreateProjectInput{
			OwnerID: owner.ID.String(),
			Name:    "Project",
		})
		require.NoError(t, err)
	}

	_, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: owner.ID.String(),
		Name:    "One too many",
	})
	require.ErrorIs(t, err, shared.ErrLimitExceeded)

	// an upgrade lifts the quota
	owner.RoleName = role.Pro
	_, err = svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: owner.ID.String(),
		Name:    "Sixth project",
	})
	assert.NoError(t, err)
}

func TestProjectService_GetProject_Access(t *testing.T) {
	owner := testUser(role.Team)
	collaborator := testUser(role.Team)
	stranger := testUser(role.User)
	svc, _, _ := testProjectService(owner, collaborator, stranger)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: owner.ID.String(),
		Name:    "Shared work",
	})
	require.NoError(t, err)
	collaborator.SharedResources.Add(project.ResourceType, p.ID.String())

	t.Run("owner reads through own scope", func(t *testing.T) {
		got, err := svc.GetProject(ctx, owner, p.ID.String())
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("collaborator reads through shared scope", func(t *testing.T) {
		got, err := svc.GetProject(ctx, collaborator, p.ID.String())
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("stranger is denied", func(t *testing.T) {
		_, err := svc.GetProject(ctx, stranger, p.ID.String())
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("missing project", func(t *testing.T) {
		_, err := svc.GetProject(ctx, owner, shared.NewID().String())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestProjectService_UpdateProject(t *testing.T) {
	owner := testUser(role.User)
	svc, _, _ := testProjectService(owner)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: owner.ID.String(),
		Name:    "Before",
	})
	require.NoError(t, err)

	name := "After"
	status := "active"
	updated, err := svc.UpdateProject(ctx, owner, UpdateProjectInput{
		ProjectID: p.ID.String(),
		Name:      &name,
		Status:    &status,
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, project.StatusActive, updated.Status)

	bad := "exploded"
	_, err = svc.UpdateProject(ctx, owner, UpdateProjectInput{
		ProjectID: p.ID.String(),
		Status:    &bad,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestProjectService_DeleteProject(t *testing.T) {
	owner := testUser(role.User)
	stranger := testUser(role.User)
	svc, projectRepo, _ := testProjectService(owner, stranger)
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, CreateProjectInput{
		OwnerID: owner.ID.String(),
		Name:    "Doomed",
	})
	require.NoError(t, err)

	err = svc.DeleteProject(ctx, stranger, p.ID.String())
	assert.ErrorIs(t, err, shared.ErrForbidden)

	require.NoError(t, svc.DeleteProject(ctx, owner, p.ID.String()))
	_, err = projectRepo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProjectService_ListProjects(t *testing.T) {
	owner := testUser(role.Pro)
	other := testUser(role.Pro)
	svc, _, _ := testProjectService(owner, other)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateProject(ctx, CreateProjectInput{OwnerID: owner.ID.String(), Name: "Mine"})
		require.NoError(t, err)
	}
	_, err := svc.CreateProject(ctx, CreateProjectInput{OwnerID: other.ID.String(), Name: "Theirs"})
	require.NoError(t, err)

	projects, total, err := svc.ListProjects(ctx, owner, 20, 0)
	require.NoError(t, err)
	assert.Len(t, projects, 3)
	assert.EqualValues(t, 3, total)
}
