package stableids

import "context"

// Repository reads and assigns the stable id column of syncable tables.
type Repository interface {
	// Assign sets stable_id only if it is still NULL. It reports whether this
	// call won. Assignment never touches updated_at.
	Assign(ctx context.Context, table string, serverID int64, stableID string) (bool, error)
	// Get returns the current stable id, "" if unassigned.
	Get(ctx context.Context, table string, serverID int64) (string, error)
}
