package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// NewMigrator builds a migrator over the *.sql files in fsys. Each service
// keeps its own version table so they can share one database.
// Closing the migrator closes db.
func NewMigrator(db *sql.DB, fsys fs.FS, table string) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}

	drv, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: table})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return nil, fmt.Errorf("migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies pending migrations over a dedicated connection to url.
func MigrateUp(url string, fsys fs.FS, table string) error {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return err
	}

	m, err := NewMigrator(db, fsys, table)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
