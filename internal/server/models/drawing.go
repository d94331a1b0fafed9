package models

import "database/sql"

// DrawingStatusActive marks the current revision of a sheet.
const DrawingStatusActive = "active"

// Drawing is a sheet belonging to a project. Server-managed.
type Drawing struct {
	SyncMeta
	ProjectID int64
	// ProjectStableID is joined from the parent row; empty if not yet assigned.
	ProjectStableID string

	SheetNumber    sql.NullString
	Title          sql.NullString
	Discipline     sql.NullString
	StoragePath    sql.NullString
	OriginalName   sql.NullString
	MimeType       sql.NullString
	FileSize       sql.NullInt64
	RevisionNumber sql.NullString
	RevisionDate   sql.NullTime
	Status         string
	TotalPages     sql.NullInt32
}
