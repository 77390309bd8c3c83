package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/planforge/api/pkg/domain/project"
	"github.com/planforge/api/pkg/domain/shared"
)

// ProjectRepository implements project.Repository backed by PostgreSQL. The
// generated plan is a JSONB column stored and returned verbatim.
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, owner_id, name, description, status,
	plan, plan_model, plan_generated_at, created_at, updated_at`

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.OwnerID.String(), p.Name, nullString(p.Description), p.Status.String(),
		nullBytes(p.Plan), nullString(p.PlanModel), nullTime(p.PlanAt),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetByID loads a project by id.
func (r *ProjectRepository) GetByID(ctx context.Context, id shared.ID) (*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := r.scanProject(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return p, nil
}

// Update persists the full project record.
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) error {
	query := `
		UPDATE projects SET
			name = $2, description = $3, status = $4,
			plan = $5, plan_model = $6, plan_generated_at = $7,
			updated_at = $8
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		p.ID.String(), p.Name, nullString(p.Description), p.Status.String(),
		nullBytes(p.Plan), nullString(p.PlanModel), nullTime(p.PlanAt),
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRowAffected(result, project.ErrProjectNotFound)
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id shared.ID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireRowAffected(result, project.ErrProjectNotFound)
}

// ListByOwner returns the owner's projects, newest first.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID shared.ID, limit, offset int) ([]*project.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1` + orderByCreatedAtDesc
	args := []any{ownerID.String()}
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
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := r.scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CountByOwner returns the number of projects owned by the user.
func (r *ProjectRepository) CountByOwner(ctx context.Context, ownerID shared.ID) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE owner_id = $1`, ownerID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

func (r *ProjectRepository) scanProject(row rowScanner) (*project.Project, error) {
	var (
		p           project.Project
		idStr       string
		ownerStr    string
		description sql.NullString
		status      string
		plan        []byte
		planModel   sql.NullString
		planAt      sql.NullTime
	)

	err := row.Scan(
		&idStr, &ownerStr, &p.Name, &description, &status,
		&plan, &planModel, &planAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid project id %q: %w", idStr, err)
	}
	ownerID, err := shared.IDFromString(ownerStr)
	if err != nil {
		return nil, fmt.Errorf("invalid owner id %q: %w", ownerStr, err)
	}

	p.ID = id
	p.OwnerID = ownerID
	p.Description = nullStringValue(description)
	p.Status = project.Status(status)
	if len(plan) > 0 {
		p.Plan = json.RawMessage(plan)
	}
	p.PlanModel = nullStringValue(planModel)
	p.PlanAt = nullTimeValue(planAt)

	return &p, nil
}
