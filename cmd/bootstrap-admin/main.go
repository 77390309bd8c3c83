// Command bootstrap-admin creates the first admin account on a fresh
// deployment, before any interactive signup path exists.
//
// Usage:
//
//	# Generate an admin with a random password
//	./bootstrap-admin -db=$DATABASE_URL -email=admin@example.com
//
//	# Use a specific password
//	./bootstrap-admin -db=$DATABASE_URL -email=admin@example.com -password=$BOOTSTRAP_ADMIN_PASSWORD
//
//	# Or entirely via environment variables
//	DATABASE_URL=postgres://... ADMIN_EMAIL=admin@example.com ./bootstrap-admin
package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type bootstrapOptions struct {
	databaseURL string
	email       string
	name        string
	password    string
	force       bool
}

func main() {
	var opts bootstrapOptions
	flag.StringVar(&opts.databaseURL, "db", "", "Database URL (or set DATABASE_URL env)")
	flag.StringVar(&opts.email, "email", "", "Admin email (or set ADMIN_EMAIL env)")
	flag.StringVar(&opts.name, "name", "", "Admin first name (defaults to email prefix)")
	flag.StringVar(&opts.password, "password", "", "Password to use (or set BOOTSTRAP_ADMIN_PASSWORD env; random when omitted)")
	flag.BoolVar(&opts.force, "force", false, "Overwrite an existing user with the same email")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts bootstrapOptions) error {
	if opts.databaseURL == "" {
		opts.databaseURL = resolveDatabaseURL()
	}
	if opts.databaseURL == "" {
		return errors.New("database URL required: use -db, set DATABASE_URL, or set DB_HOST/DB_USER/DB_PASSWORD/DB_NAME")
	}

	email := strings.ToLower(opts.email)
	if email == "" {
		email = strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	}
	if email == "" {
		return errors.New("admin email required: use -email or set ADMIN_EMAIL")
	}

	name := opts.name
	if name == "" {
		name = os.Getenv("ADMIN_NAME")
	}
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	password := opts.password
	if password == "" {
		password = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")
	}
	generated := false
	if password == "" {
		var err error
		password, err = randomPassword()
		if err != nil {
			return err
		}
		generated = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("postgres", opts.databaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	if err := checkSchema(ctx, db); err != nil {
		return err
	}
	if err := removeExisting(ctx, db, email, opts.force); err != nil {
		return err
	}

	id, err := insertAdmin(ctx, db, email, name, password)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Bootstrap Admin Created ===")
	fmt.Printf("  ID:    %s\n", id)
	fmt.Printf("  Name:  %s\n", name)
	fmt.Printf("  Email: %s\n", email)
	if generated {
		fmt.Println()
		fmt.Println("Password (save this, it won't be shown again):")
		fmt.Printf("  %s\n", password)
	}
	fmt.Println()
	fmt.Println("Configure the CLI:")
	fmt.Println("  planforge-admin config set-context prod --api-url=https://your-api-url")
	fmt.Println("  planforge-admin config use-context prod")
	fmt.Println("  planforge-admin login -email=" + email)
	return nil
}

// resolveDatabaseURL assembles a connection string from the split DB_*
// variables used inside containers, when DATABASE_URL itself is unset.
func resolveDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	name := os.Getenv("DB_NAME")
	if host == "" || user == "" || pass == "" || name == "" {
		return ""
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, name, sslMode)
}

func checkSchema(ctx context.Context, db *sql.DB) error {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'users')`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !exists {
		return errors.New("users table does not exist, run migrations first")
	}
	return nil
}

func removeExisting(ctx context.Context, db *sql.DB, email string, force bool) error {
	var id string
	err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking existing user: %w", err)
	}

	if !force {
		return fmt.Errorf("user with email %s already exists (ID: %s), use -force to overwrite", email, id)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting existing user: %w", err)
	}
	fmt.Printf("Deleted existing user: %s\n", id)
	return nil
}

func insertAdmin(ctx context.Context, db *sql.DB, email, name, password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	id := uuid.New().String()
	now := time.Now()
	_, err = db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, role, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, email, name, "", "admin", "active", string(hashed), now, now)
	if err != nil {
		return "", fmt.Errorf("creating admin: %w", err)
	}
	return id, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return "pf-" + hex.EncodeToString(buf), nil
}
