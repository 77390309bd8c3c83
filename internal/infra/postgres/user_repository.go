package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/planforge/api/pkg/domain/onboarding"
	"github.com/planforge/api/pkg/domain/shared"
	"github.com/planforge/api/pkg/domain/user"
)

// UserRepository implements user.Repository backed by PostgreSQL. The
// onboarding state, settings document and resource lists are JSONB columns;
// they are documents the application reads and writes whole.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, role, status, password_hash,
	onboarding, settings, owned_resources, shared_resources,
	last_login_at, created_at, updated_at`

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	onboardingJSON, err := toJSONB(u.Onboarding)
	if err != nil {
		return fmt.Errorf("failed to marshal onboarding: %w", err)
	}
	settingsJSON, err := toJSONB(u.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	ownedJSON, err := toJSONB(u.OwnedResources)
	if err != nil {
		return fmt.Errorf("failed to marshal owned resources: %w", err)
	}
	sharedJSON, err := toJSONB(u.SharedResources)
	if err != nil {
		return fmt.Errorf("failed to marshal shared resources: %w", err)
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.ExecContext(ctx, query,
		u.ID.String(), u.Email, u.FirstName, u.LastName, u.RoleName, u.Status.String(),
		u.PasswordHash,
		nullBytes(onboardingJSON), nullBytes(settingsJSON),
		nullBytes(ownedJSON), nullBytes(sharedJSON),
		nullTime(u.LastLoginAt), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return user.AlreadyExistsError(u.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetByID loads a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id shared.ID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.NotFoundError(id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// GetByEmail loads a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.NotFoundByEmailError(email)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// Update persists the full user record.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	onboardingJSON, err := toJSONB(u.Onboarding)
	if err != nil {
		return fmt.Errorf("failed to marshal onboarding: %w", err)
	}
	settingsJSON, err := toJSONB(u.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	ownedJSON, err := toJSONB(u.OwnedResources)
	if err != nil {
		return fmt.Errorf("failed to marshal owned resources: %w", err)
	}
	sharedJSON, err := toJSONB(u.SharedResources)
	if err != nil {
		return fmt.Errorf("failed to marshal shared resources: %w", err)
	}

	query := `
		UPDATE users SET
			email = $2, first_name = $3, last_name = $4, role = $5, status = $6,
			password_hash = $7, onboarding = $8, settings = $9,
			owned_resources = $10, shared_resources = $11,
			last_login_at = $12, updated_at = $13
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		u.ID.String(), u.Email, u.FirstName, u.LastName, u.RoleName, u.Status.String(),
		u.PasswordHash,
		nullBytes(onboardingJSON), nullBytes(settingsJSON),
		nullBytes(ownedJSON), nullBytes(sharedJSON),
		nullTime(u.LastLoginAt), u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRowAffected(result, user.NotFoundError(u.ID))
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRowAffected(result, user.NotFoundError(id))
}

// ExistsByEmail reports whether a user with the email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, strings.ToLower(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// List returns users matching the filter.
func (r *UserRepository) List(ctx context.Context, filter user.Filter, limit, offset int) ([]*user.User, error) {
	where, args := buildUserFilter(filter)

	query := `SELECT ` + userColumns + ` FROM users` + where + orderByCreatedAtDesc
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the number of users matching the filter.
func (r *UserRepository) Count(ctx context.Context, filter user.Filter) (int64, error) {
	where, args := buildUserFilter(filter)

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// UpdateOnboarding persists only the onboarding document.
func (r *UserRepository) UpdateOnboarding(ctx context.Context, id shared.ID, state *onboarding.State) error {
	stateJSON, err := toJSONB(state)
	if err != nil {
		return fmt.Errorf("failed to marshal onboarding: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET onboarding = $2, updated_at = NOW() WHERE id = $1`,
		id.String(), nullBytes(stateJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to update onboarding: %w", err)
	}
	return requireRowAffected(result, user.NotFoundError(id))
}

// UpdateSettings persists only the settings document.
func (r *UserRepository) UpdateSettings(ctx context.Context, id shared.ID, settings *user.Settings) error {
	settingsJSON, err := toJSONB(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET settings = $2, updated_at = NOW() WHERE id = $1`,
		id.String(), nullBytes(settingsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return requireRowAffected(result, user.NotFoundError(id))
}

// AddOwnedResource appends a resource id to the user's owned list. The
// jsonb update is atomic and deduplicates on the database side.
func (r *UserRepository) AddOwnedResource(ctx context.Context, id shared.ID, resourceType, resourceID string) error {
	return r.addResource(ctx, id, "owned_resources", resourceType, resourceID)
}

// AddSharedResource appends a resource id to the user's shared list.
func (r *UserRepository) AddSharedResource(ctx context.Context, id shared.ID, resourceType, resourceID string) error {
	return r.addResource(ctx, id, "shared_resources", resourceType, resourceID)
}

func (r *UserRepository) addResource(ctx context.Context, id shared.ID, column, resourceType, resourceID string) error {
	// column is one of two fixed names, never user input
	query := fmt.Sprintf(`
		UPDATE users SET
			%[1]s = jsonb_set(
				COALESCE(%[1]s, '{}'::jsonb),
				ARRAY[$2],
				(
					SELECT COALESCE(jsonb_agg(DISTINCT e), '[]'::jsonb)
					FROM jsonb_array_elements(
						COALESCE(%[1]s->$2, '[]'::jsonb) || to_jsonb(ARRAY[$3::text])
					) AS e
				)
			),
			updated_at = NOW()
		WHERE id = $1`, column)

	result, err := r.db.ExecContext(ctx, query, id.String(), resourceType, resourceID)
	if err != nil {
		return fmt.Errorf("failed to add resource: %w", err)
	}
	return requireRowAffected(result, user.NotFoundError(id))
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanUser.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (*user.User, error) {
	var (
		u              user.User
		idStr          string
		status         string
		onboardingJSON []byte
		settingsJSON   []byte
		ownedJSON      []byte
		sharedJSON     []byte
		lastLogin      sql.NullTime
	)

	err := row.Scan(
		&idStr, &u.Email, &u.FirstName, &u.LastName, &u.RoleName, &status,
		&u.PasswordHash,
		&onboardingJSON, &settingsJSON, &ownedJSON, &sharedJSON,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", idStr, err)
	}
	u.ID = id
	u.Status = user.Status(status)
	u.LastLoginAt = nullTimeValue(lastLogin)

	if len(onboardingJSON) > 0 {
		var state onboarding.State
		if err := fromJSONB(onboardingJSON, &state); err != nil {
			return nil, fmt.Errorf("invalid onboarding document: %w", err)
		}
		u.Onboarding = &state
	}
	if len(settingsJSON) > 0 {
		var settings user.Settings
		if err := fromJSONB(settingsJSON, &settings); err != nil {
			return nil, fmt.Errorf("invalid settings document: %w", err)
		}
		u.Settings = &settings
	}

	u.OwnedResources = user.ResourceMap{}
	if err := fromJSONB(ownedJSON, &u.OwnedResources); err != nil {
		return nil, fmt.Errorf("invalid owned resources: %w", err)
	}
	u.SharedResources = user.ResourceMap{}
	if err := fromJSONB(sharedJSON, &u.SharedResources); err != nil {
		return nil, fmt.Errorf("invalid shared resources: %w", err)
	}

	return &u, nil
}

func buildUserFilter(filter user.Filter) (string, []any) {
	var conds []string
	var args []any

	if filter.Email != nil {
		args = append(args, wrapLikePattern(strings.ToLower(*filter.Email)))
		conds = append(conds, fmt.Sprintf("email ILIKE $%d", len(args)))
	}
	if filter.RoleName != nil {
		args = append(args, *filter.RoleName)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, filter.Status.String())
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Incomplete {
		conds = append(conds, "(onboarding IS NULL OR NOT COALESCE((onboarding->>'isComplete')::boolean, false))")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// requireRowAffected converts a zero-row update into notFound.
func requireRowAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
