// Package postgres implements the repository interfaces over a single
// Postgres database. User and project records live in one table each, with
// the embedded documents (onboarding, settings, plans) in JSONB columns.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/planforge/api/internal/config"
)

const connectTimeout = 5 * time.Second

// DB wraps the sql pool so repositories and health checks share one handle.
type DB struct {
	*sql.DB
}

// New opens the pool and verifies the database answers before returning.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: pool}, nil
}

// Ping reports database liveness for readiness checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// Close releases the pool.
func (db *DB) Close() error {
	return db.DB.Close()
}
