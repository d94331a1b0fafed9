package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/fieldsync/internal/dbx"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/drawings"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/observations"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/projects"
	"github.com/dmitrijs2005/fieldsync/internal/server/repositories/stableids"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Projects(db dbx.DBTX) projects.Repository
	Drawings(db dbx.DBTX) drawings.Repository
	Observations(db dbx.DBTX) observations.Repository
	StableIDs(db dbx.DBTX) stableids.Repository
}
