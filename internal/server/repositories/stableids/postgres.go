// Package stableids persists the server id to stable id half of the identity
// map. The map lives on each row as a column pair, so there is no separate
// lookup table.
package stableids

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// tables whitelists the identifiers that may be spliced into SQL.
var tables = map[string]bool{
	syncproto.TableProjects:     true,
	syncproto.TableDrawings:     true,
	syncproto.TableObservations: true,
}

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Assign(ctx context.Context, table string, serverID int64, stableID string) (bool, error) {
	if !tables[table] {
		return false, fmt.Errorf("%w: %q", common.ErrUnknownTable, table)
	}

	query := `UPDATE ` + table + ` SET stable_id = $1 WHERE id = $2 AND stable_id IS NULL`
	res, err := r.db.ExecContext(ctx, query, stableID, serverID)
	if err != nil {
		return false, fmt.Errorf("failed to assign stable id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Get(ctx context.Context, table string, serverID int64) (string, error) {
	if !tables[table] {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownTable, table)
	}

	var id sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT stable_id FROM `+table+` WHERE id = $1`, serverID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("failed to read stable id: %w", err)
	}
	return id.String, nil
}
