// Package observations provides PostgreSQL-backed observation storage for
// both sync directions.
package observations

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

const observationColumns = `o.id, COALESCE(o.stable_id, ''), o.drawing_id, COALESCE(d.stable_id, ''),
		o.page_number, o.x, o.y, o.type, o.description, o.photo_path, o.is_360_photo, o.created_by,
		o.created_at, o.updated_at, o.deleted_at`

const selectObservations = `SELECT ` + observationColumns + `
	FROM observations o
	JOIN drawings d ON d.id = o.drawing_id
	JOIN projects p ON p.id = d.project_id`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SelectLive(ctx context.Context, scope models.Scope) ([]*models.Observation, error) {
	return r.selectWindow(ctx, scope, syncsql.Live, time.Time{})
}

func (r *PostgresRepository) SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Observation, error) {
	return r.selectWindow(ctx, scope, syncsql.Created, since)
}

func (r *PostgresRepository) SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Observation, error) {
	return r.selectWindow(ctx, scope, syncsql.Updated, since)
}

func (r *PostgresRepository) SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error) {
	var q syncsql.Query
	q.Window("o", syncsql.Deleted, since)
	q.Companies("p", scope.CompanyIDs)

	base := `SELECT o.stable_id FROM observations o
	JOIN drawings d ON d.id = o.drawing_id
	JOIN projects p ON p.id = d.project_id`
	rows, err := r.db.QueryContext(ctx, q.SQL(base, "ORDER BY o.id"), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select deleted observations: %w", err)
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

func (r *PostgresRepository) GetForUpdate(ctx context.Context, stableID string) (*models.Observation, error) {
	query := `SELECT ` + observationColumns + `
	FROM observations o
	JOIN drawings d ON d.id = o.drawing_id
	WHERE o.stable_id = $1
	FOR UPDATE OF o`

	var o models.Observation
	err := scanObservation(r.db.QueryRowContext(ctx, query, stableID), &o)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to lock observation: %w", err)
	}
	return &o, nil
}

func (r *PostgresRepository) Create(ctx context.Context, o *models.Observation) (int64, error) {
	query := `INSERT INTO observations
		(stable_id, drawing_id, page_number, x, y, type, description, is_360_photo, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (stable_id) DO NOTHING
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		o.StableID, o.DrawingID, o.PageNumber, o.X, o.Y, o.Type, o.Description, o.Is360Photo, o.CreatedBy,
		o.CreatedAt, o.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert observation: %w", err)
	}
	o.ID = id
	return id, nil
}

func (r *PostgresRepository) Update(ctx context.Context, o *models.Observation) error {
	query := `UPDATE observations
		SET page_number = $2, x = $3, y = $4, type = $5, description = $6, is_360_photo = $7, updated_at = $8
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		o.ID, o.PageNumber, o.X, o.Y, o.Type, o.Description, o.Is360Photo, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update observation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, stableID string, at time.Time) (bool, error) {
	query := `UPDATE observations SET deleted_at = $2, updated_at = $2
		WHERE stable_id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, stableID, at)
	if err != nil {
		return false, fmt.Errorf("failed to delete observation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) selectWindow(ctx context.Context, scope models.Scope, w syncsql.Window, since time.Time) ([]*models.Observation, error) {
	var q syncsql.Query
	q.Window("o", w, since)
	q.Where("d.deleted_at IS NULL")
	q.Where("p.deleted_at IS NULL")
	q.Companies("p", scope.CompanyIDs)

	rows, err := r.db.QueryContext(ctx, q.SQL(selectObservations, "ORDER BY o.id"), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s observations: %w", w, err)
	}
	defer rows.Close()

	var result []*models.Observation
	for rows.Next() {
		var o models.Observation
		if err := scanObservation(rows, &o); err != nil {
			return nil, err
		}
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanObservation(s scanner, o *models.Observation) error {
	return s.Scan(
		&o.ID, &o.StableID, &o.DrawingID, &o.DrawingStableID,
		&o.PageNumber, &o.X, &o.Y, &o.Type, &o.Description, &o.PhotoPath, &o.Is360Photo, &o.CreatedBy,
		&o.CreatedAt, &o.UpdatedAt, &o.DeletedAt,
	)
}
