package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// LocalObservation is an observation plus its local sync state.
type LocalObservation struct {
	syncproto.ObservationRecord
	SyncStatus string
}

func (r *Replica) ListProjects(ctx context.Context) ([]syncproto.ProjectRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, server_id, name, external_id, state, company_id, drawings_count, created_at, updated_at
		FROM projects ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []syncproto.ProjectRecord
	for rows.Next() {
		var (
			p                 syncproto.ProjectRecord
			externalID, state sql.NullString
			companyID         sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.ServerID, &p.Name, &externalID, &state, &companyID,
			&p.DrawingsCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.ExternalID, p.State, p.CompanyID = stringPtr(externalID), stringPtr(state), int64Ptr(companyID)
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListDrawings returns drawings, restricted to one project when projectID is set.
func (r *Replica) ListDrawings(ctx context.Context, projectID string) ([]syncproto.DrawingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+drawingColumns+`
		FROM drawings
		WHERE ? = '' OR project_id = ?
		ORDER BY sheet_number, id
	`, projectID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drawings: %w", err)
	}
	defer rows.Close()

	var out []syncproto.DrawingRecord
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drawing: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDrawing returns one drawing or common.ErrorNotFound.
func (r *Replica) GetDrawing(ctx context.Context, id string) (syncproto.DrawingRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+drawingColumns+` FROM drawings WHERE id = ?`, id)
	d, err := scanDrawing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return d, fmt.Errorf("drawing %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return d, fmt.Errorf("failed to get drawing %s: %w", id, err)
	}
	return d, nil
}

const drawingColumns = `id, server_id, project_id, sheet_number, title, discipline, storage_path, file_url,
	original_name, mime_type, file_size, revision_number, revision_date, status, total_pages,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDrawing(s scanner) (syncproto.DrawingRecord, error) {
	var (
		d                                               syncproto.DrawingRecord
		sheet, title, discipline, storagePath, origName sql.NullString
		mimeType, revisionNumber, revisionDate          sql.NullString
		fileSize, totalPages                            sql.NullInt64
	)
	if err := s.Scan(&d.ID, &d.ServerID, &d.ProjectID, &sheet, &title, &discipline, &storagePath,
		&d.FileURL, &origName, &mimeType, &fileSize, &revisionNumber, &revisionDate, &d.Status,
		&totalPages, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return d, err
	}
	d.SheetNumber, d.Title, d.Discipline = stringPtr(sheet), stringPtr(title), stringPtr(discipline)
	d.StoragePath, d.OriginalName, d.MimeType = stringPtr(storagePath), stringPtr(origName), stringPtr(mimeType)
	d.RevisionNumber, d.RevisionDate = stringPtr(revisionNumber), stringPtr(revisionDate)
	d.FileSize, d.TotalPages = int64Ptr(fileSize), intPtr(totalPages)
	return d, nil
}

// ListObservations returns live observations (pending tombstones excluded),
// restricted to one drawing when drawingID is set.
func (r *Replica) ListObservations(ctx context.Context, drawingID string) ([]LocalObservation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, server_id, drawing_id, page_number, x, y, type, description, photo_path, photo_url,
			is_360_photo, created_at, updated_at, sync_status
		FROM observations
		WHERE sync_status <> ? AND (? = '' OR drawing_id = ?)
		ORDER BY created_at, id
	`, StatusDeleted, drawingID, drawingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	var out []LocalObservation
	for rows.Next() {
		var (
			o         LocalObservation
			photoPath sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.ServerID, &o.DrawingID, &o.PageNumber, &o.X, &o.Y, &o.Type,
			&o.Description, &photoPath, &o.PhotoURL, &o.Is360Photo, &o.CreatedAt, &o.UpdatedAt,
			&o.SyncStatus); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.PhotoPath = stringPtr(photoPath)
		out = append(out, o)
	}
	return out, rows.Err()
}
