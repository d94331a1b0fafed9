package drawings

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

// Repository reads drawings for the change feed and resolves drawing stable
// ids for observation pushes. Drawings are written only server-side.
type Repository interface {
	SelectLive(ctx context.Context, scope models.Scope) ([]*models.Drawing, error)
	SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Drawing, error)
	SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Drawing, error)
	SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error)

	// GetIDByStableID resolves a live drawing; common.ErrorNotFound otherwise.
	GetIDByStableID(ctx context.Context, stableID string) (int64, error)
}
