package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/permission"
	"github.com/planforge/api/pkg/domain/role"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
	"github.com/planforge/api/pkg/logger"
)

// fakeUserRepo is an in-memory user.Repository for service tests.
type fakeUserRepo struct {
	users map[string]*user.User
}

func newFakeUserRepo(users ...*user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*user.User)}
	for _, u := range users {
		r.users[u.ID.String()] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := r.users[u.ID.String()]; ok {
		return shared.ErrAlreadyExists
	}
	r.users[u.ID.String()] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id shared.ID) (*user.User, error) {
	u, ok := r.users[id.String()]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := r.users[u.ID.String()]; !ok {
		return shared.ErrNotFound
	}
	r.users[u.ID.String()] = u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id shared.ID) error {
	delete(r.users, id.String())
	return nil
}

func (r *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) List(_ context.Context, filter user.Filter, _, _ int) ([]*user.User, error) {
	var out []*user.User
	for _, u := range r.users {
		if filter.Incomplete && u.Onboarding != nil && u.Onboarding.IsComplete {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *fakeUserRepo) Count(_ context.Context, _ user.Filter) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) UpdateOnboarding(_ context.Context, id shared.ID, state *onboarding.State) error {
	u, ok := r.users[id.String()]
	if !ok {
		return shared.ErrNotFound
	}
	u.Onboarding = state
	return nil
}

func (r *fakeUserRepo) UpdateSettings(_ context.Context, id shared.ID, settings *user.Settings) error {
	u, ok := r.users[id.String()]
	if !ok {
		return shared.ErrNotFound
	}
	u.Settings = settings
	return nil
}

func (r *fakeUserRepo) AddOwnedResource(_ context.Context, id shared.ID, resourceType, resourceID string) error {
	u, ok := r.users[id.String()]
	if !ok {
		return shared.ErrNotFound
	}
	u.OwnedResources.Add(resourceType, resourceID)
	return nil
}

func (r *fakeUserRepo) AddSharedResource(_ context.Context, id shared.ID, resourceType, resourceID string) error {
	u, ok := r.users[id.String()]
	if !ok {
		return shared.ErrNotFound
	}
	u.SharedResources.Add(resourceType, resourceID)
	return nil
}

// failingUserRepo simulates an unavailable datastore.
type failingUserRepo struct {
	*fakeUserRepo
}

func (r *failingUserRepo) GetByID(_ context.Context, _ shared.ID) (*user.User, error) {
	return nil, errors.New("connection refused")
}

func testAccessService(users ...*user.User) (*AccessService, *fakeUserRepo) {
	repo := newFakeUserRepo(users...)
	resolver := role.NewResolver(role.Builtin())
	return NewAccessService(repo, resolver, logger.NewNop()), repo
}

func testUser(roleName string) *user.User {
	u := user.New("test@example.com", "Test", "User")
	u.RoleName = roleName
	return u
}

func TestAccessService_CheckPermission_Unscoped(t *testing.T) {
	admin := testUser(role.Admin)
	basic := testUser(role.User)
	svc, _ := testAccessService(admin, basic)

	tests := []struct {
		name       string
		userID     string
		permission string
		want       bool
	}{
		{"admin wildcard allows anything", admin.ID.String(), "project:delete:team", true},
		{"base role holds own-scoped read", basic.ID.String(), "project:read:own", true},
		{"base role lacks admin surface", basic.ID.String(), "admin:access", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CheckPermission(context.Background(), CheckPermissionInput{
				UserID:     tt.userID,
				Permission: tt.permission,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAccessService_CheckPermission_MissingPermission(t *testing.T) {
	svc, _ := testAccessService()

	_, err := svc.CheckPermission(context.Background(), CheckPermissionInput{
		UserID: shared.NewID().String(),
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAccessService_CheckPermission_FailsClosed(t *testing.T) {
	t.Run("malformed user id denies without error", func(t *testing.T) {
		svc, _ := testAccessService()

		got, err := svc.CheckPermission(context.Background(), CheckPermissionInput{
			UserID:     "not-a-uuid",
			Permission: "project:read",
		})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("unknown user denies without error", func(t *testing.T) {
		svc, _ := testAccessService()

		got, err := svc.CheckPermission(context.Background(), CheckPermissionInput{
			UserID:     shared.NewID().String(),
			Permission: "project:read:own",
		})
		require.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("repository failure denies without error", func(t *testing.T) {
		repo := &failingUserRepo{fakeUserRepo: newFakeUserRepo()}
		resolver := role.NewResolver(role.Builtin())
		svc := NewAccessService(repo, resolver, logger.NewNop())

		got, err := svc.CheckPermission(context.Background(), CheckPermissionInput{
			UserID:     shared.NewID().String(),
			Permission: "project:read:own",
		})
		require.NoError(t, err)
		assert.False(t, got)
	})
}

func TestAccessService_ScopedChecks(t *testing.T) {
	owner := testUser(role.Team)
	owner.OwnedResources.Add("project", "p1")
	owner.SharedResources.Add("project", "p9")
	svc, _ := testAccessService(owner)
	ctx := context.Background()

	t.Run("own scope matches owned resource", func(t *testing.T) {
		assert.True(t, svc.CheckPermissionForUser(ctx, owner, "project:read:own", "p1"))
		assert.False(t, svc.CheckPermissionForUser(ctx, owner, "project:read:own", "p2"))
	})

	t.Run("shared scope matches shared resource", func(t *testing.T) {
		assert.True(t, svc.CheckPermissionForUser(ctx, owner, "project:read:shared", "p9"))
		assert.False(t, svc.CheckPermissionForUser(ctx, owner, "project:read:shared", "p1"))
	})

	t.Run("self scope matches only the user's own id", func(t *testing.T) {
		assert.True(t, svc.CheckPermissionForUser(ctx, owner, "user:update:self", owner.ID.String()))
		assert.False(t, svc.CheckPermissionForUser(ctx, owner, "user:update:self", shared.NewID().String()))
	})

	t.Run("team scope always denies", func(t *testing.T) {
		assert.False(t, svc.CheckPermissionForUser(ctx, owner, "project:read:team", "p1"))
	})

	t.Run("scoped check without resource id denies", func(t *testing.T) {
		assert.False(t, svc.CheckPermissionForUser(ctx, owner, "project:read:own", ""))
	})

	t.Run("unknown scope denies", func(t *testing.T) {
		assert.False(t, svc.CheckPermissionForUser(ctx, owner, "project:read:global", "p1"))
	})
}

func TestAccessService_RequirePermission(t *testing.T) {
	u := testUser(role.User)
	svc, _ := testAccessService(u)

	err := svc.RequirePermission(context.Background(), u, permission.Permission("admin:access"), "")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = svc.RequirePermission(context.Background(), u, permission.Permission("user:update:self"), u.ID.String())
	assert.NoError(t, err)
}

func TestAccessService_ShareResource(t *testing.T) {
	owner := testUser(role.Pro)
	owner.OwnedResources.Add("project", "p1")
	target := testUser(role.User)
	svc, repo := testAccessService(owner, target)
	ctx := context.Background()

	t.Run("owner can share an owned resource", func(t *testing.T) {
		err := svc.ShareResource(ctx, ShareResourceInput{
			OwnerID:      owner.ID.String(),
			TargetUserID: target.ID.String(),
			ResourceType: "project",
			ResourceID:   "p1",
		})
		require.NoError(t, err)

		stored, err := repo.GetByID(ctx, target.ID)
		require.NoError(t, err)
		assert.True(t, stored.SharedResources.Contains("project", "p1"))
	})

	t.Run("sharing a resource the user does not own is forbidden", func(t *testing.T) {
		err := svc.ShareResource(ctx, ShareResourceInput{
			OwnerID:      owner.ID.String(),
			TargetUserID: target.ID.String(),
			ResourceType: "project",
			ResourceID:   "p2",
		})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("sharing with yourself is rejected", func(t *testing.T) {
		err := svc.ShareResource(ctx, ShareResourceInput{
			OwnerID:      owner.ID.String(),
			TargetUserID: owner.ID.String(),
			ResourceType: "project",
			ResourceID:   "p1",
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestAccessService_RegisterOwnedResource(t *testing.T) {
	u := testUser(role.User)
	svc, repo := testAccessService(u)
	ctx := context.Background()

	require.NoError(t, svc.RegisterOwnedResource(ctx, u.ID, "project", "p7"))

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.OwnedResources.Contains("project", "p7"))

	err = svc.RegisterOwnedResource(ctx, u.ID, "", "p7")
	assert.ErrorIs(t, err, shared.ErrValidation)
}
