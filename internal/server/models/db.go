// Package models defines server-side data models persisted in the database.
//
// Every syncable row carries the same sync metadata: a server id, a lazily
// assigned stable id, and created/updated/deleted timestamps.
package models

import (
	"database/sql"
	"time"
)

// SyncMeta is the identity and lifecycle metadata shared by syncable rows.
type SyncMeta struct {
	// ID is the server id. Immutable, never shown to clients as a reference.
	ID int64
	// StableID is the client-facing UUID; empty until the row is first synced.
	StableID string
	CreatedAt time.Time
	UpdatedAt time.Time
	// DeletedAt is set when the row is tombstoned.
	DeletedAt sql.NullTime
}

// Deleted reports whether the row is a tombstone.
func (m SyncMeta) Deleted() bool {
	return m.DeletedAt.Valid
}

// Scope restricts which projects (and therefore drawings and observations)
// a pull may see. An empty CompanyIDs slice means no restriction.
type Scope struct {
	CompanyIDs []int64
}

// Unrestricted reports whether the scope lets every project through.
func (s Scope) Unrestricted() bool {
	return len(s.CompanyIDs) == 0
}
