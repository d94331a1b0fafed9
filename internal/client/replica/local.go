package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

// NewObservation is the input of an offline create.
type NewObservation struct {
	DrawingID   string `validate:"required"`
	PageNumber  int    `validate:"gte=0"`
	X           float64
	Y           float64
	Type        string
	Description string
	Is360Photo  bool
}

// ObservationPatch is a partial offline edit; nil fields are left as is.
type ObservationPatch struct {
	PageNumber  *int `validate:"omitempty,gte=1"`
	X           *float64
	Y           *float64
	Type        *string
	Description *string
	Is360Photo  *bool
}

// CreateObservation inserts a new observation under a locally known drawing
// and returns its client-generated stable id.
func (r *Replica) CreateObservation(ctx context.Context, in NewObservation) (string, error) {
	if err := r.validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	if in.PageNumber == 0 {
		in.PageNumber = 1
	}
	if in.Type == "" {
		in.Type = "observation"
	}

	id := r.newID()
	now := r.now()

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM drawings WHERE id = ?`, in.DrawingID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("drawing %s: %w", in.DrawingID, common.ErrUnknownParent)
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO observations (id, drawing_id, page_number, x, y, type, description, is_360_photo,
				created_at, updated_at, sync_status, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		`, id, in.DrawingID, in.PageNumber, in.X, in.Y, in.Type, in.Description, in.Is360Photo,
			now, now, StatusCreated)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create observation: %w", err)
	}
	return id, nil
}

// UpdateObservation applies a patch to a live observation. Rows not yet pushed
// stay "created"; anything else becomes "updated".
func (r *Replica) UpdateObservation(ctx context.Context, id string, patch ObservationPatch) error {
	if err := r.validate.Struct(patch); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE observations SET
			page_number = COALESCE(?, page_number),
			x = COALESCE(?, x),
			y = COALESCE(?, y),
			type = COALESCE(?, type),
			description = COALESCE(?, description),
			is_360_photo = COALESCE(?, is_360_photo),
			updated_at = ?,
			sync_status = CASE WHEN sync_status = ? THEN ? ELSE ? END,
			version = version + 1
		WHERE id = ? AND sync_status <> ?
	`, nullInt(patch.PageNumber), nullFloat(patch.X), nullFloat(patch.Y), nullString(patch.Type),
		nullString(patch.Description), nullBool(patch.Is360Photo), r.now(),
		StatusCreated, StatusCreated, StatusUpdated, id, StatusDeleted)
	if err != nil {
		return fmt.Errorf("update observation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update observation %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("observation %s: %w", id, common.ErrorNotFound)
	}
	return nil
}

// DeleteObservation removes a never-pushed observation outright and marks
// any other live one as a pending tombstone.
func (r *Replica) DeleteObservation(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT sync_status FROM observations WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) || status == StatusDeleted {
			return common.ErrorNotFound
		}
		if err != nil {
			return err
		}

		if status == StatusCreated {
			_, err = tx.ExecContext(ctx, `DELETE FROM observations WHERE id = ?`, id)
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE observations SET sync_status = ?, updated_at = ?, version = version + 1 WHERE id = ?
		`, StatusDeleted, r.now(), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete observation %s: %w", id, err)
	}
	return nil
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
