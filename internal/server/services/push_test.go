package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/common"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Outcome
	}{
		{nil, Applied},
		{common.ErrUnknownParent, Skipped},
		{fmt.Errorf("wrapped: %w", common.ErrDuplicate), Skipped},
		{common.ErrorNotFound, Skipped},
		{&common.ConflictError{Table: "observations", StableID: "x"}, Fatal},
		{errors.New("connection reset"), Fatal},
		{context.Canceled, Fatal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), "%v", tt.err)
	}
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}

func TestBatchReport(t *testing.T) {
	boom := errors.New("boom")
	r := &BatchReport{Items: []ItemResult{
		{StableID: "a", Outcome: Applied},
		{StableID: "b", Outcome: Skipped, Err: common.ErrorNotFound},
		{StableID: "c", Outcome: Fatal, Err: boom},
	}}

	assert.Len(t, r.Applied(), 1)
	assert.Len(t, r.Skipped(), 1)
	assert.Len(t, r.Fatal(), 1)
	assert.Equal(t, boom, r.Err())
	assert.NoError(t, (&BatchReport{}).Err())
}

func TestObservationApplier_StopsAtFirstConflict(t *testing.T) {
	store := newMemStore()
	h := &harness{store: store}
	seedObservation(h, "one", base.Add(time.Minute))
	store.mu.Lock()
	c := *store.observations[0]
	c.ID, c.StableID = 78, "two"
	store.observations = append(store.observations, &c)
	store.mu.Unlock()

	rm := &memRepoManager{s: store}
	a := NewObservationApplier(rm.Drawings(nil), rm.Observations(nil), logging.Discard(), fixedClock(base.Add(time.Hour)), base, "")

	report := a.Apply(context.Background(), updates(
		syncproto.ObservationInput{ID: "one", Description: strp("x")},
		syncproto.ObservationInput{ID: "two", Description: strp("y")},
	))

	require.Len(t, report.Items, 1)
	assert.True(t, common.IsConflict(report.Err()))
	assert.Equal(t, "original", store.observation("two").Description)
}

func TestObservationApplier_NilChangeSet(t *testing.T) {
	rm := &memRepoManager{s: newMemStore()}
	a := NewObservationApplier(rm.Drawings(nil), rm.Observations(nil), logging.Discard(), fixedClock(base), base, "")
	report := a.Apply(context.Background(), nil)
	assert.Empty(t, report.Items)
	assert.NoError(t, report.Err())
}

func TestObservationApplier_CreateWithoutParentIsSkipped(t *testing.T) {
	rm := &memRepoManager{s: newMemStore()}
	a := NewObservationApplier(rm.Drawings(nil), rm.Observations(nil), logging.Discard(), fixedClock(base), base, "")
	report := a.Apply(context.Background(), creates(syncproto.ObservationInput{ID: "a"}))
	require.Len(t, report.Skipped(), 1)
	assert.ErrorIs(t, report.Skipped()[0].Err, common.ErrUnknownParent)
	assert.Equal(t, OpCreate, report.Skipped()[0].Op)
}

func fixedClock(t time.Time) timex.Clock {
	return func() time.Time { return t }
}

func TestObservationApplier_StampsAfterRowLock(t *testing.T) {
	store := newMemStore()
	h := &harness{store: store}
	seedObservation(h, "edited", base)
	store.mu.Lock()
	c := *store.observations[0]
	c.ID, c.StableID = 78, "removed"
	store.observations = append(store.observations, &c)
	store.mu.Unlock()

	now := base.Add(time.Minute)
	afterWait := base.Add(time.Hour)
	store.onLock = func() { now = afterWait }

	rm := &memRepoManager{s: store}
	a := NewObservationApplier(rm.Drawings(nil), rm.Observations(nil), logging.Discard(),
		func() time.Time { return now }, base, "")

	cs := updates(syncproto.ObservationInput{ID: "edited", Description: strp("x")})
	cs.Deleted = []string{"removed"}
	report := a.Apply(context.Background(), cs)
	require.NoError(t, report.Err())
	require.Len(t, report.Applied(), 2)

	assert.Equal(t, afterWait, store.observation("edited").UpdatedAt)
	removed := store.observation("removed")
	assert.True(t, removed.Deleted())
	assert.Equal(t, afterWait, removed.DeletedAt.Time)
	assert.Equal(t, afterWait, removed.UpdatedAt)
}

func TestObservationApplier_DeleteOfTombstoneKeepsStamp(t *testing.T) {
	store := newMemStore()
	h := &harness{store: store}
	seedObservation(h, "gone", base)
	store.mu.Lock()
	store.observations[0].DeletedAt = sql.NullTime{Time: base, Valid: true}
	store.mu.Unlock()

	rm := &memRepoManager{s: store}
	a := NewObservationApplier(rm.Drawings(nil), rm.Observations(nil), logging.Discard(), fixedClock(base.Add(time.Hour)), base, "")
	report := a.Apply(context.Background(), deletes("gone", "never-existed"))

	require.Len(t, report.Applied(), 2)
	assert.Equal(t, base, store.observation("gone").DeletedAt.Time)
}
