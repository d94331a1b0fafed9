package models

import "database/sql"

// Project is the top-level container. Server-managed; read-only to clients.
type Project struct {
	SyncMeta
	Name       string
	ExternalID sql.NullString
	State      sql.NullString
	CompanyID  sql.NullInt64
	// DrawingsCount is derived: active drawings of this project.
	DrawingsCount int
}
