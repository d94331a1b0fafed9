// Package changefeed computes the created/updated/deleted partition of a
// syncable table relative to a client watermark.
//
// Rows created after the watermark are "created" even when they were also
// updated since; a row is "updated" only if it already existed when the
// client last pulled. Tombstones are reported by stable id only, and rows
// that never received a stable id are left out because no client can hold
// them.
package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
	"github.com/dmitrijs2005/fieldsync/internal/syncproto"
)

// Source is the read side a feed needs from a table repository.
type Source[T any] interface {
	SelectLive(ctx context.Context, scope models.Scope) ([]T, error)
	SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]T, error)
	SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]T, error)
	SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error)
}

// Serializer converts one row into its wire record, resolving stable ids
// on the way.
type Serializer[T any] func(ctx context.Context, row T) (syncproto.Record, error)

// Feed is one table of the pull response.
type Feed interface {
	// Name is the table key in the response.
	Name() string
	// Parent names the feed whose records this one references, "" if none.
	Parent() string
	// Diff returns the changes since the watermark; nil since means
	// everything live is reported as created.
	Diff(ctx context.Context, since *time.Time) (*syncproto.ChangeSet[syncproto.Record], error)
}

type tableFeed[T any] struct {
	name      string
	parent    string
	source    Source[T]
	scope     models.Scope
	serialize Serializer[T]
}

// NewFeed binds a table source and its serializer into a Feed.
func NewFeed[T any](name, parent string, source Source[T], scope models.Scope, serialize Serializer[T]) Feed {
	return &tableFeed[T]{
		name:      name,
		parent:    parent,
		source:    source,
		scope:     scope,
		serialize: serialize,
	}
}

func (f *tableFeed[T]) Name() string   { return f.name }
func (f *tableFeed[T]) Parent() string { return f.parent }

func (f *tableFeed[T]) Diff(ctx context.Context, since *time.Time) (*syncproto.ChangeSet[syncproto.Record], error) {
	cs := syncproto.NewChangeSet[syncproto.Record]()

	if since == nil {
		rows, err := f.source.SelectLive(ctx, f.scope)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		if cs.Created, err = f.serializeAll(ctx, rows); err != nil {
			return nil, err
		}
		return cs, nil
	}

	created, err := f.source.SelectCreatedSince(ctx, f.scope, *since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	if cs.Created, err = f.serializeAll(ctx, created); err != nil {
		return nil, err
	}

	updated, err := f.source.SelectUpdatedSince(ctx, f.scope, *since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	if cs.Updated, err = f.serializeAll(ctx, updated); err != nil {
		return nil, err
	}

	deleted, err := f.source.SelectDeletedSince(ctx, f.scope, *since)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.name, err)
	}
	if deleted != nil {
		cs.Deleted = deleted
	}

	return cs, nil
}

func (f *tableFeed[T]) serializeAll(ctx context.Context, rows []T) ([]syncproto.Record, error) {
	out := make([]syncproto.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := f.serialize(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
