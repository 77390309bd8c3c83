// Package main provides a CLI tool to load development seed data.
//
// Usage:
//
//	./seed -db=$DATABASE_URL
//	./seed -db=$DATABASE_URL -clean
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
)

func main() {
	dbURL := flag.String("db", "", "Database URL (or set DATABASE_URL env)")
	seedFile := flag.String("file", "migrations/seed/seed_data.sql", "Path to seed SQL file")
	clean := flag.Bool("clean", false, "Clean existing seed data before seeding")
	flag.Parse()

	if err := run(*dbURL, *seedFile, *clean); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dbURL, seedFile string, clean bool) error {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("database URL required: use -db flag or set DATABASE_URL env")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Println("Connected to database")

	if clean {
		cleanSeedData(ctx, db)
		fmt.Println("Cleaned existing seed data")
	}

	seedPath, err := filepath.Abs(seedFile)
	if err != nil {
		return fmt.Errorf("resolve seed file path: %w", err)
	}
	seedSQL, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	fmt.Printf("Executing seed file: %s\n", seedPath)
	if _, err := db.ExecContext(ctx, string(seedSQL)); err != nil {
		return fmt.Errorf("execute seed SQL: %w", err)
	}

	printSummary(ctx, db)
	fmt.Println("\nSeed completed successfully!")
	return nil
}

// cleanSeedData deletes only the rows with well-known seed UUIDs. Projects
// go first because of the owner foreign key. Failures are warnings so a
// partially-migrated database can still be seeded.
func cleanSeedData(ctx context.Context, db *sql.DB) {
	queries := []string{
		`DELETE FROM projects WHERE id::text LIKE 'dddddddd-dddd-dddd-dddd-%'`,
		`DELETE FROM users WHERE id IN (
			'11111111-1111-1111-1111-111111111111',
			'22222222-2222-2222-2222-222222222222',
			'33333333-3333-3333-3333-333333333333',
			'44444444-4444-4444-4444-444444444444'
		)`,
	}
	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
	}
}

func printSummary(ctx context.Context, db *sql.DB) {
	fmt.Println("\n=== Seed Data Summary ===")

	counts := []struct {
		label string
		query string
	}{
		{"Users", "SELECT COUNT(*) FROM users"},
		{"Projects", "SELECT COUNT(*) FROM projects"},
		{"Projects with plans", "SELECT COUNT(*) FROM projects WHERE plan IS NOT NULL"},
	}
	for _, c := range counts {
		var n int
		if err := db.QueryRowContext(ctx, c.query).Scan(&n); err != nil {
			fmt.Printf("  %s: (error: %v)\n", c.label, err)
			continue
		}
		fmt.Printf("  %s: %d\n", c.label, n)
	}
}
