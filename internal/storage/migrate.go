package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

// The expenses table and its idempotency index ship inside the binary.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means an earlier expenses migration stopped half way and
// the database needs manual repair before the server can use it.
var ErrDirtySchema = errors.New("expenses schema is dirty")

// RunMigrations applies any pending expenses migrations to the database at
// dsn and returns the resulting schema version.
func RunMigrations(dsn string, logger *applog.Logger) (uint, error) {
	if logger == nil {
		logger = applog.Discard()
	}

	// m.Close closes its database, so it gets a handle of its own.
	schemaDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return 0, fmt.Errorf("open expenses schema: %w", err)
	}
	defer schemaDB.Close()

	driver, err := sqlite.WithInstance(schemaDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("sqlite migrate driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("embedded expenses migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("expenses migrator: %w", err)
	}
	defer m.Close()

	if _, dirty, err := m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
	case err != nil:
		return 0, fmt.Errorf("apply expenses migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read expenses schema version: %w", err)
	}
	logger.Debug("Expenses schema ready",
		applog.FieldOperation, applog.OpMigrate,
		"schema_version", version)
	return version, nil
}
