// Package migrations provides a versioned SQL migration runner.
//
// Migration files live in a flat directory and follow the naming
// convention {version}_{name}.{up|down}.sql, e.g.
// 000002_projects.up.sql. Applied versions are tracked in the
// schema_migrations table.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Runner applies and rolls back migrations against one database.
type Runner struct {
	db  *sql.DB
	dir string
	out io.Writer
}

// NewRunner creates a migration runner reading from dir.
func NewRunner(db *sql.DB, dir string) *Runner {
	return &Runner{db: db, dir: dir, out: os.Stdout}
}

type appliedMigration struct {
	version   string
	appliedAt time.Time
}

// Up applies every pending migration in version order.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.ensureVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to ensure migration table: %w", err)
	}

	pending, err := r.pendingVersions(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "No pending migrations")
		return nil
	}

	fmt.Fprintf(r.out, "Running %d migrations...\n", len(pending))
	for _, version := range pending {
		if err := r.apply(ctx, version, "up"); err != nil {
			return fmt.Errorf("migration %s failed: %w", version, err)
		}
		fmt.Fprintf(r.out, "  Applied: %s\n", version)
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(r.out, "No migrations to rollback")
		return nil
	}

	last := applied[len(applied)-1]
	if err := r.apply(ctx, last.version, "down"); err != nil {
		return fmt.Errorf("rollback %s failed: %w", last.version, err)
	}
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = $1", last.version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	fmt.Fprintf(r.out, "Rolled back: %s\n", last.version)
	return nil
}

// Status lists every known migration with its applied date.
func (r *Runner) Status(ctx context.Context) error {
	if err := r.ensureVersionTable(ctx); err != nil {
		return err
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	available, err := r.availableVersions()
	if err != nil {
		return err
	}

	appliedAt := make(map[string]time.Time, len(applied))
	for _, m := range applied {
		appliedAt[m.version] = m.appliedAt
	}

	fmt.Fprintln(r.out, "Migration Status")
	fmt.Fprintln(r.out, "================")
	for _, v := range available {
		status := "pending"
		if at, ok := appliedAt[v]; ok {
			status = fmt.Sprintf("applied (%s)", at.Format("2006-01-02"))
		}
		fmt.Fprintf(r.out, "  %s: %s\n", v, status)
	}
	return nil
}

func (r *Runner) ensureVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	return err
}

func (r *Runner) appliedMigrations(ctx context.Context) ([]appliedMigration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var applied []appliedMigration
	for rows.Next() {
		var m appliedMigration
		if err := rows.Scan(&m.version, &m.appliedAt); err != nil {
			return nil, err
		}
		applied = append(applied, m)
	}
	return applied, rows.Err()
}

func (r *Runner) pendingVersions(ctx context.Context) ([]string, error) {
	available, err := r.availableVersions()
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := r.appliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	appliedSet := make(map[string]bool, len(applied))
	for _, m := range applied {
		appliedSet[m.version] = true
	}

	var pending []string
	for _, v := range available {
		if !appliedSet[v] {
			pending = append(pending, v)
		}
	}
	return pending, nil
}

// availableVersions collects the version prefixes of all *.up.sql files,
// sorted ascending.
func (r *Runner) availableVersions() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var versions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok || seen[version] {
			continue
		}
		seen[version] = true
		versions = append(versions, version)
	}
	sort.Strings(versions)
	return versions, nil
}

// apply runs one migration file inside a transaction. Up migrations also
// record their version in the same transaction, so a failed migration
// leaves no record behind.
func (r *Runner) apply(ctx context.Context, version, direction string) error {
	pattern := filepath.Join(r.dir, fmt.Sprintf("%s_*.%s.sql", version, direction))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("migration file not found: %s", pattern)
	}

	script, err := os.ReadFile(matches[0])
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(script)); err != nil {
		return err
	}
	if direction == "up" {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return err
		}
	}
	return tx.Commit()
}
