package main

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"

	"github.com/canvasworks/shopstock/internal/config"
)

func main() {
	log.Println("shopstock migration runner")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration:", err)
	}

	log.Printf("connecting to database: %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database:", err)
	}

	migrationDir := "migrations"
	if len(os.Args) > 1 {
		migrationDir = os.Args[1]
	}

	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		log.Fatalf("migration directory not found: %s", migrationDir)
	}

	if err := createMigrationTable(db); err != nil {
		log.Fatal("failed to create migration table:", err)
	}

	if err := runMigrations(db, migrationDir); err != nil {
		log.Fatal("migration failed:", err)
	}

	log.Println("all migrations completed")
}

// createMigrationTable ensures the migration history table exists
func createMigrationTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL UNIQUE,
			executed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			checksum VARCHAR(64) NOT NULL
		)`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	return nil
}

// runMigrations applies pending .sql files in filename order, each inside
// its own transaction.
func runMigrations(db *sql.DB, migrationDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}

	if len(files) == 0 {
		log.Printf("no migration files found in %s", migrationDir)
		return nil
	}

	sort.Strings(files)

	executed, err := getExecutedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migration history: %w", err)
	}

	for _, file := range files {
		filename := filepath.Base(file)

		if executed[filename] {
			log.Printf("skipping (already applied): %s", filename)
			continue
		}

		log.Printf("applying: %s", filename)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}

		checksum := fmt.Sprintf("%x", sha256.Sum256(content))

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply %s: %w", filename, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)",
			filename, checksum,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record %s: %w", filename, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit %s: %w", filename, err)
		}

		log.Printf("applied: %s", filename)
	}

	return nil
}

// getExecutedMigrations returns the set of already-applied migration files
func getExecutedMigrations(db *sql.DB) (map[string]bool, error) {
	executed := make(map[string]bool)

	rows, err := db.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		executed[filename] = true
	}

	return executed, rows.Err()
}
