package projects

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

// Repository reads projects for the change feed. Projects are written only
// by server-side logic outside this engine.
type Repository interface {
	SelectLive(ctx context.Context, scope models.Scope) ([]*models.Project, error)
	SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Project, error)
	SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Project, error)
	SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error)
}
