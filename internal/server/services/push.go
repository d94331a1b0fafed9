package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/observations"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// Outcome classifies what happened to one pushed item.
type Outcome int

const (
	Applied Outcome = iota
	Skipped
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Operation is the kind of mutation an item requests.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ItemResult records the outcome of one mutation.
type ItemResult struct {
	Table    string
	StableID string
	Op       Operation
	Outcome  Outcome
	Err      error
}

// BatchReport collects per-item outcomes of a push. The transaction commits
// only if Fatal is empty.
type BatchReport struct {
	Items []ItemResult
}

func (r *BatchReport) filter(o Outcome) []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Outcome == o {
			out = append(out, it)
		}
	}
	return out
}

func (r *BatchReport) Applied() []ItemResult { return r.filter(Applied) }
func (r *BatchReport) Skipped() []ItemResult { return r.filter(Skipped) }
func (r *BatchReport) Fatal() []ItemResult   { return r.filter(Fatal) }

// Err returns the error of the first fatal item, nil if there is none.
func (r *BatchReport) Err() error {
	for _, it := range r.Items {
		if it.Outcome == Fatal {
			return it.Err
		}
	}
	return nil
}

// classify maps an item error to its outcome. Unknown parents, duplicates
// and missing rows are skipped; conflicts and storage failures are fatal.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return Applied
	case errors.Is(err, common.ErrUnknownParent),
		errors.Is(err, common.ErrDuplicate),
		errors.Is(err, common.ErrorNotFound):
		return Skipped
	default:
		return Fatal
	}
}

// ObservationApplier applies pushed observation mutations inside the
// caller's transaction. Repositories must be bound to that transaction.
type ObservationApplier struct {
	drawings     drawings.Repository
	observations observations.Repository
	logger       logging.Logger

	// clock stamps each write. It is read once the row is locked, so a
	// stamp never predates a lock wait.
	clock        timex.Clock
	lastPulledAt time.Time
	userID       string
}

func NewObservationApplier(d drawings.Repository, o observations.Repository, logger logging.Logger,
	clock timex.Clock, lastPulledAt time.Time, userID string) *ObservationApplier {
	return &ObservationApplier{
		drawings:     d,
		observations: o,
		logger:       logger,
		clock:        clock,
		lastPulledAt: lastPulledAt,
		userID:       userID,
	}
}

// Apply runs creates, then updates, then deletes, and stops at the first
// fatal item.
func (a *ObservationApplier) Apply(ctx context.Context, cs *syncproto.ChangeSet[syncproto.ObservationInput]) *BatchReport {
	report := &BatchReport{}
	if cs == nil {
		return report
	}

	record := func(op Operation, id string, err error) bool {
		if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
			err = ctxErr
		}
		res := ItemResult{Table: syncproto.TableObservations, StableID: id, Op: op, Outcome: classify(err), Err: err}
		report.Items = append(report.Items, res)

		switch res.Outcome {
		case Skipped:
			a.logger.Warn(ctx, "push item skipped", "table", res.Table, "stable_id", id, "op", string(op), "reason", err)
		case Fatal:
			if !common.IsConflict(err) {
				a.logger.Error(ctx, "push item failed", "table", res.Table, "stable_id", id, "op", string(op), "error", err)
			}
		}
		return res.Outcome != Fatal
	}

	for i := range cs.Created {
		in := &cs.Created[i]
		if !record(OpCreate, in.ID, a.create(ctx, in)) {
			return report
		}
	}
	for i := range cs.Updated {
		in := &cs.Updated[i]
		if !record(OpUpdate, in.ID, a.update(ctx, in)) {
			return report
		}
	}
	for _, id := range cs.Deleted {
		if !record(OpDelete, id, a.delete(ctx, id)) {
			return report
		}
	}
	return report
}

func (a *ObservationApplier) create(ctx context.Context, in *syncproto.ObservationInput) error {
	if in.DrawingID == "" {
		return common.ErrUnknownParent
	}
	drawingID, err := a.drawings.GetIDByStableID(ctx, in.DrawingID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: drawing %s", common.ErrUnknownParent, in.DrawingID)
		}
		return err
	}

	now := a.clock()
	o := &models.Observation{
		SyncMeta: models.SyncMeta{
			StableID:  in.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		DrawingID:  drawingID,
		PageNumber: models.DefaultPageNumber,
		Type:       models.DefaultObservationType,
	}
	if a.userID != "" {
		o.CreatedBy.String, o.CreatedBy.Valid = a.userID, true
	}
	mergeInput(o, in)

	_, err = a.observations.Create(ctx, o)
	return err
}

func (a *ObservationApplier) update(ctx context.Context, in *syncproto.ObservationInput) error {
	o, err := a.observations.GetForUpdate(ctx, in.ID)
	if err != nil {
		return err
	}
	if o.UpdatedAt.After(a.lastPulledAt) {
		return &common.ConflictError{Table: syncproto.TableObservations, StableID: in.ID}
	}
	if o.Deleted() {
		return fmt.Errorf("%w: observation %s is deleted", common.ErrorNotFound, in.ID)
	}

	mergeInput(o, in)
	o.UpdatedAt = a.clock()
	return a.observations.Update(ctx, o)
}

func (a *ObservationApplier) delete(ctx context.Context, id string) error {
	o, err := a.observations.GetForUpdate(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		a.logger.Debug(ctx, "delete of missing observation ignored", "stable_id", id)
		return nil
	}
	if err != nil {
		return err
	}
	if o.Deleted() {
		a.logger.Debug(ctx, "delete of tombstone ignored", "stable_id", id)
		return nil
	}

	if _, err := a.observations.SoftDelete(ctx, id, a.clock()); err != nil {
		return err
	}
	return nil
}

// mergeInput copies the fields present in the input onto o.
func mergeInput(o *models.Observation, in *syncproto.ObservationInput) {
	if in.PageNumber != nil {
		o.PageNumber = *in.PageNumber
	}
	if in.X != nil {
		o.X = *in.X
	}
	if in.Y != nil {
		o.Y = *in.Y
	}
	if in.Type != nil {
		o.Type = *in.Type
	}
	if in.Description != nil {
		o.Description = *in.Description
	}
	if in.Is360Photo != nil {
		o.Is360Photo = *in.Is360Photo
	}
}
