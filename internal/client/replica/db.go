// Package replica is the client's local SQLite copy of the synced tables.
//
// Projects and drawings are read-only mirrors of the server. Observations can
// also be created, edited and deleted offline; such rows carry a sync_status
// other than "synced" until a push confirms them, and a version counter that
// lets MarkSynced ignore rows edited again while a push was in flight.
package replica

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/migrations"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Local sync states of an observation row.
const (
	StatusSynced  = "synced"
	StatusCreated = "created"
	StatusUpdated = "updated"
	StatusDeleted = "deleted"
)

// RunMigrations applies the embedded replica schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to apply replica migrations: %w", err)
	}
	return nil
}

// Replica wraps the local database.
type Replica struct {
	db       *sql.DB
	clock    timex.Clock
	newID    func() string
	validate *validator.Validate
}

// New wraps an already migrated database.
func New(db *sql.DB) *Replica {
	return &Replica{
		db:       db,
		clock:    timex.MillisClock,
		newID:    uuid.NewString,
		validate: validator.New(),
	}
}

// Open opens (creating if needed) the SQLite file at dsn and migrates it.
func Open(ctx context.Context, dsn string) (*Replica, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY
	// and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// DB exposes the underlying handle.
func (r *Replica) DB() *sql.DB { return r.db }

func (r *Replica) Close() error { return r.db.Close() }

func (r *Replica) now() int64 { return timex.ToMillis(r.clock()) }

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
