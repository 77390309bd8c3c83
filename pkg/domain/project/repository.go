package project

import (
	"context"

	"github.com/planforge/api/pkg/domain/shared"
)

// Repository defines the interface for project persistence.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id shared.ID) (*Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id shared.ID) error

	ListByOwner(ctx context.Context, ownerID shared.ID, limit, offset int) ([]*Project, error)
	CountByOwner(ctx context.Context, ownerID shared.ID) (int64, error)
}
