// Package services holds the sync orchestrator: the pull path assembling
// change feeds and the push path applying client mutations in one
// transaction.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/changefeed"
	"github.com/dmitrijs2005/fieldsync/internal/server/identity"
	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is what the service needs from *sql.DB.
type Database interface {
	dbx.DBTX
	dbx.Beginner
}

// SyncService orchestrates pulls and pushes.
type SyncService struct {
	db          Database
	repomanager repomanager.RepositoryManager
	scope       models.Scope
	signer      changefeed.URLSigner
	logger      logging.Logger
	clock       timex.Clock
	validate    *validator.Validate
}

// NewSyncService wires the orchestrator. signer may be nil when object
// storage is not configured.
func NewSyncService(db Database, rm repomanager.RepositoryManager, scope models.Scope,
	signer changefeed.URLSigner, logger logging.Logger) *SyncService {
	return &SyncService{
		db:          db,
		repomanager: rm,
		scope:       scope,
		signer:      signer,
		logger:      logging.ForModule(logger, "sync"),
		clock:       timex.MillisClock,
		validate:    validator.New(),
	}
}

// feeds declares every pulled table together with the table it references.
func (s *SyncService) feeds(db dbx.DBTX) []changefeed.Feed {
	ser := &changefeed.Serializers{
		Resolver: identity.NewResolver(s.repomanager.StableIDs(db)),
		Signer:   s.signer,
		Logger:   s.logger,
	}
	return []changefeed.Feed{
		changefeed.NewFeed[*models.Project](syncproto.TableProjects, "",
			s.repomanager.Projects(db), s.scope, ser.Project),
		changefeed.NewFeed[*models.Drawing](syncproto.TableDrawings, syncproto.TableProjects,
			s.repomanager.Drawings(db), s.scope, ser.Drawing),
		changefeed.NewFeed[*models.Observation](syncproto.TableObservations, syncproto.TableDrawings,
			s.repomanager.Observations(db), s.scope, ser.Observation),
	}
}

// snapshotAttempts bounds how often one table diff is retried after losing
// a stable-id race to a concurrent pull.
const snapshotAttempts = 3

// serializationFailure is the Postgres SQLSTATE of a repeatable-read
// transaction that touched a row changed after its snapshot.
const serializationFailure = "40001"

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

// Pull returns everything that changed since the watermark. The response
// timestamp is captured before any table is read. Each table is diffed in
// its own repeatable-read transaction, so its created, updated and deleted
// lists come from one snapshot and never overlap.
func (s *SyncService) Pull(ctx context.Context, since *time.Time, schemaVersion int) (*syncproto.PullResponse, error) {
	snapshot := s.clock()

	ordered, err := changefeed.OrderFeeds(s.feeds(s.db))
	if err != nil {
		return nil, err
	}

	resp := &syncproto.PullResponse{
		Changes:   make(map[string]*syncproto.ChangeSet[syncproto.Record], len(ordered)),
		Timestamp: timex.ToMillis(snapshot),
	}

	args := []any{"schema_version", schemaVersion, "first_sync", since == nil}
	for _, f := range ordered {
		cs, err := s.diff(ctx, f.Name(), since)
		if err != nil {
			s.logger.Error(ctx, "pull failed", "table", f.Name(), "error", err)
			return nil, err
		}
		resp.Changes[f.Name()] = cs
		args = append(args, f.Name(), cs.Len())
	}

	s.logger.Info(ctx, "pull served", args...)
	return resp, nil
}

// diff runs one table feed inside a repeatable-read transaction.
func (s *SyncService) diff(ctx context.Context, table string, since *time.Time) (*syncproto.ChangeSet[syncproto.Record], error) {
	var cs *syncproto.ChangeSet[syncproto.Record]
	for attempt := 1; ; attempt++ {
		err := dbx.WithTx(ctx, s.db, dbx.RepeatableRead, func(ctx context.Context, tx dbx.DBTX) error {
			f, err := s.feed(tx, table)
			if err != nil {
				return err
			}
			cs, err = f.Diff(ctx, since)
			return err
		})
		if err == nil {
			return cs, nil
		}
		if !isSerializationFailure(err) || attempt >= snapshotAttempts {
			return nil, err
		}
		s.logger.Debug(ctx, "table diff retried", "table", table, "attempt", attempt, "error", err)
	}
}

func (s *SyncService) feed(db dbx.DBTX, table string) (changefeed.Feed, error) {
	for _, f := range s.feeds(db) {
		if f.Name() == table {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no feed for table %q", table)
}

// Push applies the client's changes atomically. It returns the batch report
// (also on failure, when any item ran) and an error that is a
// *common.ConflictError, wraps common.ErrorValidation, or is a storage
// failure.
func (s *SyncService) Push(ctx context.Context, req *syncproto.PushRequest, userID string) (*BatchReport, error) {
	if req.LastPulledAt == nil {
		return nil, fmt.Errorf("%w: last_pulled_at is required", common.ErrorValidation)
	}
	lastPulledAt := timex.FromMillis(*req.LastPulledAt)

	var observations *syncproto.ChangeSet[syncproto.ObservationInput]
	for table, raw := range req.Changes {
		if !syncproto.WritableTables[table] {
			s.logger.Debug(ctx, "push ignores server-managed table", "table", table)
			continue
		}
		cs, err := s.decodeObservations(raw)
		if err != nil {
			return nil, err
		}
		observations = cs
	}

	if observations.Len() == 0 {
		return &BatchReport{}, nil
	}

	var report *BatchReport
	err := dbx.WithTx(ctx, s.db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
		applier := NewObservationApplier(
			s.repomanager.Drawings(tx), s.repomanager.Observations(tx), s.logger, s.clock, lastPulledAt, userID)
		report = applier.Apply(ctx, observations)
		return report.Err()
	})
	if err != nil {
		if common.IsConflict(err) {
			s.logger.Warn(ctx, "push rolled back on conflict", "error", err)
		} else {
			s.logger.Error(ctx, "push rolled back", "error", err)
		}
		return report, err
	}

	s.logger.Info(ctx, "push committed",
		"applied", len(report.Applied()), "skipped", len(report.Skipped()))
	return report, nil
}

func (s *SyncService) decodeObservations(raw json.RawMessage) (*syncproto.ChangeSet[syncproto.ObservationInput], error) {
	cs := syncproto.NewChangeSet[syncproto.ObservationInput]()
	if len(raw) == 0 || string(raw) == "null" {
		return cs, nil
	}
	if err := json.Unmarshal(raw, cs); err != nil {
		return nil, fmt.Errorf("%w: observations: %v", common.ErrorValidation, err)
	}
	for _, part := range [][]syncproto.ObservationInput{cs.Created, cs.Updated} {
		for i := range part {
			if err := s.validate.Struct(&part[i]); err != nil {
				return nil, fmt.Errorf("%w: observations: %v", common.ErrorValidation, err)
			}
		}
	}
	for _, id := range cs.Deleted {
		if id == "" {
			return nil, fmt.Errorf("%w: observations: empty deleted id", common.ErrorValidation)
		}
	}
	return cs, nil
}

// Ping reports whether the database answers.
func (s *SyncService) Ping(ctx context.Context) error {
	p, ok := s.db.(interface{ PingContext(context.Context) error })
	if !ok {
		return nil
	}
	return p.PingContext(ctx)
}

var _ Database = (*sql.DB)(nil)
