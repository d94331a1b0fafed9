// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/migrations"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/observations"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/projects"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/stableids"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Projects returns a projects.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewPostgresRepository(db)
}

// Drawings returns a drawings.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Drawings(db dbx.DBTX) drawings.Repository {
	return drawings.NewPostgresRepository(db)
}

// Observations returns an observations.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Observations(db dbx.DBTX) observations.Repository {
	return observations.NewPostgresRepository(db)
}

// StableIDs returns a stableids.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) StableIDs(db dbx.DBTX) stableids.Repository {
	return stableids.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
