package syncclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fieldsync/internal/client/replica"
	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// Store is the local side of a sync round. *replica.Replica satisfies it.
type Store interface {
	LastPulledAt(ctx context.Context) (*int64, error)
	ApplyPull(ctx context.Context, pulled *syncproto.PulledChanges) error
	PendingChanges(ctx context.Context) (*replica.Pending, error)
	MarkSynced(ctx context.Context, p *replica.Pending) error
}

// Remote is the server side of a sync round. *HTTPClient satisfies it.
type Remote interface {
	Pull(ctx context.Context, lastPulledAt *int64) (*syncproto.PulledChanges, error)
	Push(ctx context.Context, req *syncproto.PushRequest) error
}

// Result summarizes a finished round.
type Result struct {
	Attempts  int
	Pulled    int
	Pushed    int
	Timestamp int64
}

type Synchronizer struct {
	store       Store
	remote      Remote
	maxAttempts int
	logger      logging.Logger
}

// NewSynchronizer builds a synchronizer; maxAttempts below 1 means 1.
func NewSynchronizer(store Store, remote Remote, maxAttempts int, logger logging.Logger) *Synchronizer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Synchronizer{
		store:       store,
		remote:      remote,
		maxAttempts: maxAttempts,
		logger:      logging.ForModule(logger, "synchronizer"),
	}
}

// Synchronize pulls and applies server changes, then pushes the local queue
// against the freshly stored watermark. A conflicting push is retried after
// another pull; any other push failure leaves the queue intact.
func (s *Synchronizer) Synchronize(ctx context.Context) (*Result, error) {
	res := &Result{}

	for res.Attempts < s.maxAttempts {
		res.Attempts++

		pulled, err := s.pull(ctx)
		if err != nil {
			return res, err
		}
		res.Pulled += countPulled(pulled)
		res.Timestamp = pulled.Timestamp

		pending, err := s.store.PendingChanges(ctx)
		if err != nil {
			return res, fmt.Errorf("read local changes: %w", err)
		}
		if pending.Empty() {
			s.logger.Debug(ctx, "nothing to push", "timestamp", pulled.Timestamp)
			return res, nil
		}

		req, err := pending.PushRequest()
		if err != nil {
			return res, fmt.Errorf("build push: %w", err)
		}

		err = s.remote.Push(ctx, req)
		var conflict *common.ConflictError
		if errors.As(err, &conflict) {
			s.logger.Warn(ctx, "push conflict, pulling again",
				"attempt", res.Attempts, "table", conflict.Table, "id", conflict.StableID)
			continue
		}
		if err != nil {
			return res, err
		}

		if err := s.store.MarkSynced(ctx, pending); err != nil {
			return res, fmt.Errorf("mark synced: %w", err)
		}
		res.Pushed = pending.Changes.Len()
		s.logger.Info(ctx, "sync complete",
			"attempts", res.Attempts, "pulled", res.Pulled, "pushed", res.Pushed)
		return res, nil
	}

	return res, ErrTooManyConflicts
}

func (s *Synchronizer) pull(ctx context.Context) (*syncproto.PulledChanges, error) {
	last, err := s.store.LastPulledAt(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last pulled at: %w", err)
	}

	pulled, err := s.remote.Pull(ctx, last)
	if err != nil {
		return nil, err
	}

	if err := s.store.ApplyPull(ctx, pulled); err != nil {
		return nil, fmt.Errorf("apply pull: %w", err)
	}
	return pulled, nil
}

func countPulled(p *syncproto.PulledChanges) int {
	return p.Changes.Projects.Len() + p.Changes.Drawings.Len() + p.Changes.Observations.Len()
}
