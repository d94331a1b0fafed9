package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
)

const keyLastPulledAt = "last_pulled_at"

type metadataStore struct {
	db dbx.DBTX
}

func (m metadataStore) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, true, nil
}

func (m metadataStore) set(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

// LastPulledAt returns the server timestamp of the last applied pull, or nil
// when the replica has never been synced.
func (r *Replica) LastPulledAt(ctx context.Context) (*int64, error) {
	return lastPulledAt(ctx, r.db)
}

func lastPulledAt(ctx context.Context, db dbx.DBTX) (*int64, error) {
	raw, ok, err := metadataStore{db: db}.get(ctx, keyLastPulledAt)
	if err != nil || !ok {
		return nil, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt %s %q: %w", keyLastPulledAt, raw, err)
	}
	return &v, nil
}

func setLastPulledAt(ctx context.Context, db dbx.DBTX, ms int64) error {
	return metadataStore{db: db}.set(ctx, keyLastPulledAt, strconv.FormatInt(ms, 10))
}
