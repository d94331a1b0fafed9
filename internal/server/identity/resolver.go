// Package identity assigns stable client-facing ids to server rows.
//
// A stable id is created lazily, the first time a row is serialized for a
// client, and never changes afterwards. Concurrent first touches converge on
// a single value: the conditional write lets exactly one caller win and
// everyone else reads the winner back.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/stableids"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// Resolver maps server ids to stable ids.
type Resolver struct {
	store stableids.Repository
	newID func() string
}

// NewResolver returns a resolver persisting through store.
func NewResolver(store stableids.Repository) *Resolver {
	return &Resolver{store: store, newID: func() string { return uuid.New().String() }}
}

// Ensure returns the stable id of the row (table, serverID). current is the
// value the caller already read with the row; when it is non-empty it is
// returned as is and nothing is written.
func (r *Resolver) Ensure(ctx context.Context, table string, serverID int64, current string) (string, error) {
	if current != "" {
		return current, nil
	}

	candidate := r.newID()
	won, err := r.store.Assign(ctx, table, serverID, candidate)
	if err != nil && !isUniqueViolation(err) {
		return "", fmt.Errorf("ensure stable id for %s %d: %w", table, serverID, err)
	}
	if won {
		return candidate, nil
	}

	winner, err := r.store.Get(ctx, table, serverID)
	if err != nil {
		return "", fmt.Errorf("read stable id for %s %d: %w", table, serverID, err)
	}
	if winner == "" {
		return "", fmt.Errorf("stable id for %s %d is still unassigned", table, serverID)
	}
	return winner, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
