// Package projects provides the PostgreSQL-backed project change-feed
// queries.
package projects

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/syncsql"
)

const selectProjects = `SELECT p.id, COALESCE(p.stable_id, ''), p.name, p.external_id, p.state, p.company_id,
		(SELECT COUNT(*) FROM drawings d WHERE d.project_id = p.id AND d.status = 'active' AND d.deleted_at IS NULL),
		p.created_at, p.updated_at, p.deleted_at
	FROM projects p`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SelectLive returns every non-deleted project in scope.
func (r *PostgresRepository) SelectLive(ctx context.Context, scope models.Scope) ([]*models.Project, error) {
	return r.selectWindow(ctx, scope, syncsql.Live, time.Time{})
}

// SelectCreatedSince returns live projects created after since.
func (r *PostgresRepository) SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Project, error) {
	return r.selectWindow(ctx, scope, syncsql.Created, since)
}

// SelectUpdatedSince returns live projects updated after since that already
// existed at since.
func (r *PostgresRepository) SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Project, error) {
	return r.selectWindow(ctx, scope, syncsql.Updated, since)
}

// SelectDeletedSince returns stable ids of projects tombstoned after since.
func (r *PostgresRepository) SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error) {
	var q syncsql.Query
	q.Window("p", syncsql.Deleted, since)
	q.Companies("p", scope.CompanyIDs)

	rows, err := r.db.QueryContext(ctx, q.SQL("SELECT p.stable_id FROM projects p", "ORDER BY p.id"), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select deleted projects: %w", err)
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

func (r *PostgresRepository) selectWindow(ctx context.Context, scope models.Scope, w syncsql.Window, since time.Time) ([]*models.Project, error) {
	var q syncsql.Query
	q.Window("p", w, since)
	q.Companies("p", scope.CompanyIDs)

	rows, err := r.db.QueryContext(ctx, q.SQL(selectProjects, "ORDER BY p.id"), q.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s projects: %w", w, err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(
			&p.ID, &p.StableID, &p.Name, &p.ExternalID, &p.State, &p.CompanyID,
			&p.DrawingsCount, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
