package replica

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// ApplyPull stores a pull response in one transaction and records its
// timestamp as the new last_pulled_at.
//
// Observations with a pending local create or edit are left untouched so the
// local version is replayed on the next push. Server deletions win over
// pending edits; only rows never pushed survive a remote tombstone.
func (r *Replica) ApplyPull(ctx context.Context, pulled *syncproto.PulledChanges) error {
	if pulled == nil {
		return fmt.Errorf("apply pull: nil response")
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if cs := pulled.Changes.Projects; cs != nil {
			for _, p := range upserts(cs) {
				if err := upsertProject(ctx, tx, p); err != nil {
					return err
				}
			}
			if err := deleteAll(ctx, tx, `DELETE FROM projects WHERE id = ?`, cs.Deleted); err != nil {
				return fmt.Errorf("delete projects: %w", err)
			}
		}

		if cs := pulled.Changes.Drawings; cs != nil {
			for _, d := range upserts(cs) {
				if err := upsertDrawing(ctx, tx, d); err != nil {
					return err
				}
			}
			if err := deleteAll(ctx, tx, `DELETE FROM drawings WHERE id = ?`, cs.Deleted); err != nil {
				return fmt.Errorf("delete drawings: %w", err)
			}
		}

		if cs := pulled.Changes.Observations; cs != nil {
			for _, o := range upserts(cs) {
				if err := upsertObservation(ctx, tx, o); err != nil {
					return err
				}
			}
			q := `DELETE FROM observations WHERE id = ? AND sync_status <> '` + StatusCreated + `'`
			if err := deleteAll(ctx, tx, q, cs.Deleted); err != nil {
				return fmt.Errorf("delete observations: %w", err)
			}
		}

		return setLastPulledAt(ctx, tx, pulled.Timestamp)
	})
}

func upserts[R any](cs *syncproto.ChangeSet[R]) []R {
	out := make([]R, 0, len(cs.Created)+len(cs.Updated))
	out = append(out, cs.Created...)
	return append(out, cs.Updated...)
}

func deleteAll(ctx context.Context, tx dbx.DBTX, query string, ids []string) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}
	return nil
}

func upsertProject(ctx context.Context, tx dbx.DBTX, p syncproto.ProjectRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projects (id, server_id, name, external_id, state, company_id, drawings_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			server_id = excluded.server_id,
			name = excluded.name,
			external_id = excluded.external_id,
			state = excluded.state,
			company_id = excluded.company_id,
			drawings_count = excluded.drawings_count,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, p.ID, p.ServerID, p.Name, nullString(p.ExternalID), nullString(p.State), nullInt64(p.CompanyID),
		p.DrawingsCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", p.ID, err)
	}
	return nil
}

func upsertDrawing(ctx context.Context, tx dbx.DBTX, d syncproto.DrawingRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO drawings (id, server_id, project_id, sheet_number, title, discipline, storage_path, file_url,
			original_name, mime_type, file_size, revision_number, revision_date, status, total_pages, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			server_id = excluded.server_id,
			project_id = excluded.project_id,
			sheet_number = excluded.sheet_number,
			title = excluded.title,
			discipline = excluded.discipline,
			storage_path = excluded.storage_path,
			file_url = excluded.file_url,
			original_name = excluded.original_name,
			mime_type = excluded.mime_type,
			file_size = excluded.file_size,
			revision_number = excluded.revision_number,
			revision_date = excluded.revision_date,
			status = excluded.status,
			total_pages = excluded.total_pages,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`, d.ID, d.ServerID, d.ProjectID, nullString(d.SheetNumber), nullString(d.Title), nullString(d.Discipline),
		nullString(d.StoragePath), d.FileURL, nullString(d.OriginalName), nullString(d.MimeType), nullInt64(d.FileSize),
		nullString(d.RevisionNumber), nullString(d.RevisionDate), d.Status, nullInt(d.TotalPages), d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert drawing %s: %w", d.ID, err)
	}
	return nil
}

func upsertObservation(ctx context.Context, tx dbx.DBTX, o syncproto.ObservationRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO observations (id, server_id, drawing_id, page_number, x, y, type, description,
			photo_path, photo_url, is_360_photo, created_at, updated_at, sync_status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '`+StatusSynced+`', 0)
		ON CONFLICT(id) DO UPDATE SET
			server_id = excluded.server_id,
			drawing_id = excluded.drawing_id,
			page_number = excluded.page_number,
			x = excluded.x,
			y = excluded.y,
			type = excluded.type,
			description = excluded.description,
			photo_path = excluded.photo_path,
			photo_url = excluded.photo_url,
			is_360_photo = excluded.is_360_photo,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
		WHERE observations.sync_status = '`+StatusSynced+`'
	`, o.ID, o.ServerID, o.DrawingID, o.PageNumber, o.X, o.Y, o.Type, o.Description,
		nullString(o.PhotoPath), o.PhotoURL, o.Is360Photo, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert observation %s: %w", o.ID, err)
	}
	return nil
}
