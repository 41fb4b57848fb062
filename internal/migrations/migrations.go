package migrations

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migration represents a single database migration. Up may use the
// {{serial}} placeholder which is expanded per dialect.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: 1,
		Name:    "Create items table",
		Up: `
			CREATE TABLE IF NOT EXISTS items (
				id {{serial}},
				name TEXT NOT NULL,
				description TEXT
			);
		`,
	},
	{
		Version: 2,
		Name:    "Add items name index",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_items_name ON items(name);
		`,
	},
}

// expand substitutes the dialect specific primary key column type
func expand(driverName string, statement string) string {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driverName == "postgres" {
		serial = "SERIAL PRIMARY KEY"
	}

	return strings.ReplaceAll(statement, "{{serial}}", serial)
}

// Run executes all pending migrations on the database
func Run(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, err := GetCurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, migration := range AllMigrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if _, err := tx.Exec(expand(db.DriverName(), migration.Up)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		_, err = tx.Exec(
			db.Rebind("INSERT INTO schema_migrations (version, name) VALUES (?, ?)"),
			migration.Version,
			migration.Name,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// GetCurrentVersion returns the current database schema version
func GetCurrentVersion(db *sqlx.DB) (int, error) {
	var version int
	err := db.Get(&version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err != nil {
		return 0, err
	}
	return version, nil
}
