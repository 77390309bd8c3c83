package main

import (
	"github.com/planforge/api/internal/infra/postgres"
)

// Repositories holds all repository instances.
type Repositories struct {
	User    *postgres.UserRepository
	Project *postgres.ProjectRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		User:    postgres.NewUserRepository(db),
		Project: postgres.NewProjectRepository(db),
	}
}
