package replica

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// Pending is a snapshot of the local observation queue.
type Pending struct {
	Changes *syncproto.ChangeSet[syncproto.ObservationInput]
	// LastPulledAt is the watermark to push against; 0 if never pulled.
	LastPulledAt int64
	// Versions holds each queued row's version at snapshot time.
	Versions map[string]int64
}

// Empty reports whether there is nothing to push.
func (p *Pending) Empty() bool {
	return p == nil || p.Changes.Len() == 0
}

// PushRequest builds the wire request for this snapshot.
func (p *Pending) PushRequest() (*syncproto.PushRequest, error) {
	return syncproto.NewObservationPush(p.Changes, p.LastPulledAt)
}

// PendingChanges collects every observation with a local create, edit or
// delete, oldest edit first.
func (r *Replica) PendingChanges(ctx context.Context) (*Pending, error) {
	p := &Pending{
		Changes:  syncproto.NewChangeSet[syncproto.ObservationInput](),
		Versions: map[string]int64{},
	}

	last, err := lastPulledAt(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if last != nil {
		p.LastPulledAt = *last
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, drawing_id, page_number, x, y, type, description, is_360_photo, sync_status, version
		FROM observations
		WHERE sync_status <> ?
		ORDER BY updated_at, id
	`, StatusSynced)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending observations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			in      syncproto.ObservationInput
			page    int
			x, y    float64
			typ     string
			desc    string
			is360   bool
			status  string
			version int64
		)
		if err := rows.Scan(&in.ID, &in.DrawingID, &page, &x, &y, &typ, &desc, &is360, &status, &version); err != nil {
			return nil, fmt.Errorf("failed to scan pending observation: %w", err)
		}
		in.PageNumber, in.X, in.Y, in.Type, in.Description, in.Is360Photo = &page, &x, &y, &typ, &desc, &is360
		p.Versions[in.ID] = version

		switch status {
		case StatusCreated:
			p.Changes.Created = append(p.Changes.Created, in)
		case StatusUpdated:
			p.Changes.Updated = append(p.Changes.Updated, in)
		case StatusDeleted:
			p.Changes.Deleted = append(p.Changes.Deleted, in.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending observations: %w", err)
	}
	return p, nil
}

// MarkSynced clears the queue entries of an accepted push. Rows edited again
// since the snapshot keep their pending state; pushed tombstones are purged.
func (r *Replica) MarkSynced(ctx context.Context, p *Pending) error {
	if p.Empty() {
		return nil
	}

	deleted := make(map[string]bool, len(p.Changes.Deleted))
	for _, id := range p.Changes.Deleted {
		deleted[id] = true
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for id, version := range p.Versions {
			var err error
			if deleted[id] {
				_, err = tx.ExecContext(ctx, `DELETE FROM observations WHERE id = ? AND version = ?`, id, version)
			} else {
				_, err = tx.ExecContext(ctx,
					`UPDATE observations SET sync_status = ? WHERE id = ? AND version = ?`,
					StatusSynced, id, version)
			}
			if err != nil {
				return fmt.Errorf("mark observation %s synced: %w", id, err)
			}
		}
		return nil
	})
}
