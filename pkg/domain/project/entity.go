// Package project provides the project domain model. A project owns at most
// one generated plan document.
package project

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/planforge/api/pkg/domain/shared"
)

// ResourceType is the resource segment projects use in permission strings
// and ownership lists.
const ResourceType = "project"

// Status represents the project lifecycle status.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPlanning Status = "planning"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPlanning, StatusActive, StatusArchived:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Project represents a project entity.
type Project struct {
	ID          shared.ID       `json:"id"`
	OwnerID     shared.ID       `json:"ownerId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Plan        json.RawMessage `json:"plan,omitempty"`
	PlanModel   string          `json:"planModel,omitempty"`
	PlanAt      *time.Time      `json:"planGeneratedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// New creates a new draft project.
func New(ownerID shared.ID, name, description string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:          shared.NewID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasPlan reports whether a plan has been generated for the project.
func (p *Project) HasPlan() bool {
	return len(p.Plan) > 0
}

// SetPlan stores a generated plan document on the project.
func (p *Project) SetPlan(plan json.RawMessage, model string) {
	now := time.Now().UTC()
	p.Plan = plan
	p.PlanModel = model
	p.PlanAt = &now
	p.Status = StatusPlanning
	p.UpdatedAt = now
}

// Domain errors for project operations.
var (
	ErrProjectNotFound = fmt.Errorf("project %w", shared.ErrNotFound)
	ErrNoPlan          = fmt.Errorf("plan %w", shared.ErrNotFound)
	ErrProjectLimit    = fmt.Errorf("project %w", shared.ErrLimitExceeded)
)
