package models

import "database/sql"

// Observation defaults applied when a client omits a field on create.
const (
	DefaultObservationType = "observation"
	DefaultPageNumber      = 1
)

// Observation is a field note pinned on a drawing page. It is the only kind
// clients may create, modify or delete.
type Observation struct {
	SyncMeta
	DrawingID int64
	// DrawingStableID is joined from the parent row; empty if not yet assigned.
	DrawingStableID string

	PageNumber  int
	X           float64
	Y           float64
	Type        string
	Description string
	PhotoPath   sql.NullString
	Is360Photo  bool
	CreatedBy   sql.NullString
}
