package changefeed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSource evaluates the feed windows over an in-memory table the same way
// the SQL predicates do.
type memSource struct {
	rows []*models.Observation
	err  error
}

func (m *memSource) SelectLive(_ context.Context, _ models.Scope) ([]*models.Observation, error) {
	return m.filter(func(r models.SyncMeta) bool { return !r.Deleted() })
}

func (m *memSource) SelectCreatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Observation, error) {
	return m.filter(func(r models.SyncMeta) bool { return !r.Deleted() && r.CreatedAt.After(since) })
}

func (m *memSource) SelectUpdatedSince(_ context.Context, _ models.Scope, since time.Time) ([]*models.Observation, error) {
	return m.filter(func(r models.SyncMeta) bool {
		return !r.Deleted() && r.UpdatedAt.After(since) && !r.CreatedAt.After(since)
	})
}

func (m *memSource) SelectDeletedSince(_ context.Context, _ models.Scope, since time.Time) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []string{}
	for _, r := range m.rows {
		if r.Deleted() && r.DeletedAt.Time.After(since) && r.StableID != "" {
			out = append(out, r.StableID)
		}
	}
	return out, nil
}

func (m *memSource) filter(keep func(models.SyncMeta) bool) ([]*models.Observation, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Observation
	for _, r := range m.rows {
		if keep(r.SyncMeta) {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeResolver assigns predictable ids and remembers them.
type fakeResolver struct {
	assigned map[string]string
	err      error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{assigned: map[string]string{}}
}

func (f *fakeResolver) Ensure(_ context.Context, table string, serverID int64, current string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if current != "" {
		return current, nil
	}
	key := fmt.Sprintf("%s/%d", table, serverID)
	if id, ok := f.assigned[key]; ok {
		return id, nil
	}
	id := "gen-" + key
	f.assigned[key] = id
	return id, nil
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func obs(id int64, stable string, created, updated int, deleted int) *models.Observation {
	o := &models.Observation{
		SyncMeta: models.SyncMeta{
			ID:        id,
			StableID:  stable,
			CreatedAt: at(created),
			UpdatedAt: at(updated),
		},
		DrawingID:       1,
		DrawingStableID: "drawing-1",
		PageNumber:      1,
		Type:            models.DefaultObservationType,
	}
	if deleted > 0 {
		o.DeletedAt = sql.NullTime{Time: at(deleted), Valid: true}
	}
	return o
}

func newObservationFeed(src *memSource, res IDResolver) Feed {
	s := &Serializers{Resolver: res}
	return NewFeed(syncproto.TableObservations, syncproto.TableDrawings, src, models.Scope{}, s.Observation)
}

func ids(recs []syncproto.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.StableID())
	}
	return out
}

func TestDiff_FirstSyncReturnsEveryLiveRowAsCreated(t *testing.T) {
	src := &memSource{rows: []*models.Observation{
		obs(1, "a", 10, 10, 0),
		obs(2, "", 20, 30, 0),
		obs(3, "c", 20, 40, 40),
	}}
	feed := newObservationFeed(src, newFakeResolver())

	cs, err := feed.Diff(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "gen-observations/2"}, ids(cs.Created))
	assert.Empty(t, cs.Updated)
	assert.Empty(t, cs.Deleted)
	assert.NotNil(t, cs.Updated, "empty partitions marshal as []")
	assert.NotNil(t, cs.Deleted)
}

func TestDiff_PartitionsRelativeToWatermark(t *testing.T) {
	since := at(100)
	src := &memSource{rows: []*models.Observation{
		obs(1, "untouched", 10, 50, 0),
		obs(2, "edited", 10, 150, 0),
		obs(3, "new-then-edited", 120, 180, 0),
		obs(4, "new", 130, 130, 0),
		obs(5, "gone", 10, 160, 160),
		obs(6, "", 110, 170, 170),      // created and deleted between pulls, never seen
		obs(7, "old-gone", 10, 90, 90), // deleted before the watermark
		obs(8, "boundary", 100, 100, 0),
	}}
	feed := newObservationFeed(src, newFakeResolver())

	cs, err := feed.Diff(context.Background(), &since)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"new-then-edited", "new"}, ids(cs.Created))
	assert.ElementsMatch(t, []string{"edited"}, ids(cs.Updated))
	assert.ElementsMatch(t, []string{"gone"}, cs.Deleted)
}

func TestDiff_PartitionsAreDisjoint(t *testing.T) {
	var rows []*models.Observation
	n := int64(0)
	for c := 0; c <= 200; c += 40 {
		for u := c; u <= 240; u += 60 {
			for _, d := range []int{0, u} {
				n++
				rows = append(rows, obs(n, fmt.Sprintf("o-%d", n), c, u, d))
			}
		}
	}
	src := &memSource{rows: rows}
	feed := newObservationFeed(src, newFakeResolver())

	for _, s := range []int{0, 39, 40, 100, 200, 240} {
		since := at(s)
		cs, err := feed.Diff(context.Background(), &since)
		require.NoError(t, err)

		seen := map[string]string{}
		mark := func(part string, id string) {
			if prev, ok := seen[id]; ok {
				t.Errorf("since=%d: %s reported as both %s and %s", s, id, prev, part)
			}
			seen[id] = part
		}
		for _, id := range ids(cs.Created) {
			mark("created", id)
		}
		for _, id := range ids(cs.Updated) {
			mark("updated", id)
		}
		for _, id := range cs.Deleted {
			mark("deleted", id)
		}
	}
}

func TestDiff_WatermarkEqualToSnapshotIsEmpty(t *testing.T) {
	src := &memSource{rows: []*models.Observation{obs(1, "a", 10, 20, 0), obs(2, "b", 10, 30, 30)}}
	feed := newObservationFeed(src, newFakeResolver())

	snapshot := at(30)
	cs, err := feed.Diff(context.Background(), &snapshot)
	require.NoError(t, err)
	assert.Zero(t, cs.Len())
}

func TestDiff_AssignsParentStableID(t *testing.T) {
	o := obs(1, "a", 10, 10, 0)
	o.DrawingID = 9
	o.DrawingStableID = ""
	src := &memSource{rows: []*models.Observation{o}}
	res := newFakeResolver()
	feed := newObservationFeed(src, res)

	cs, err := feed.Diff(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, cs.Created, 1)

	rec := cs.Created[0].(syncproto.ObservationRecord)
	assert.Equal(t, "gen-drawings/9", rec.DrawingID)
	assert.Equal(t, at(10).UnixMilli(), rec.CreatedAt)
}

func TestDiff_Errors(t *testing.T) {
	since := at(0)

	t.Run("source", func(t *testing.T) {
		src := &memSource{err: errors.New("db is down")}
		_, err := newObservationFeed(src, newFakeResolver()).Diff(context.Background(), &since)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "observations")
	})

	t.Run("resolver", func(t *testing.T) {
		src := &memSource{rows: []*models.Observation{obs(1, "", 10, 10, 0)}}
		res := newFakeResolver()
		res.err = errors.New("resolver failed")
		_, err := newObservationFeed(src, res).Diff(context.Background(), &since)
		assert.ErrorIs(t, err, res.err)
	})
}
