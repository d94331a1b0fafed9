// Package drawings provides PostgreSQL-backed drawing queries.
package drawings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/syncsql"
)

const selectDrawings = `SELECT d.id, COALESCE(d.stable_id, ''), d.project_id, COALESCE(p.stable_id, ''),
		d.sheet_number, d.title, d.discipline, d.storage_path, d.original_name, d.mime_type, d.file_size,
		d.revision_number, d.revision_date, d.status, d.total_pages,
		d.created_at, d.updated_at, d.deleted_at
	FROM drawings d
	JOIN projects p ON p.id = d.project_id`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SelectLive(ctx context.Context, scope models.Scope) ([]*models.Drawing, error) {
	return r.selectWindow(ctx, scope, syncsql.Live, time.Time{})
}

func (r *PostgresRepository) SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Drawing, error) {
	return r.selectWindow(ctx, scope, syncsql.Created, since)
}

func (r *PostgresRepository) SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Drawing, error) {
	return r.selectWindow(ctx, scope, syncsql.Updated, since)
}

// SelectDeletedSince returns stable ids of drawings tombstoned after since.
// The parent project's own state does not matter here: a client that holds
// the drawing must learn it is gone.
func (r *PostgresRepository) SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error) {
	var q syncsql.Query
	q.Window("d", syncsql.Deleted, since)
	q.Companies("p", scope.CompanyIDs)

	query := q.SQL("SELECT d.stable_id FROM drawings d JOIN projects p ON p.id = d.project_id", "ORDER BY d.id")
	rows, err := r.db.QueryContext(ctx, query, q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select deleted drawings: %w", err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetIDByStableID resolves the server id of a live drawing.
func (r *PostgresRepository) GetIDByStableID(ctx context.Context, stableID string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM drawings WHERE stable_id = $1 AND deleted_at IS NULL`, stableID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("failed to resolve drawing: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) selectWindow(ctx context.Context, scope models.Scope, w syncsql.Window, since time.Time) ([]*models.Drawing, error) {
	var q syncsql.Query
	q.Window("d", w, since)
	q.Where("p.deleted_at IS NULL")
	q.Companies("p", scope.CompanyIDs)

	rows, err := r.db.QueryContext(ctx, q.SQL(selectDrawings, "ORDER BY d.id"), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s drawings: %w", w, err)
	}
	defer rows.Close()

	var result []*models.Drawing
	for rows.Next() {
		var d models.Drawing
		if err := rows.Scan(
			&d.ID, &d.StableID, &d.ProjectID, &d.ProjectStableID,
			&d.SheetNumber, &d.Title, &d.Discipline, &d.StoragePath, &d.OriginalName, &d.MimeType, &d.FileSize,
			&d.RevisionNumber, &d.RevisionDate, &d.Status, &d.TotalPages,
			&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
