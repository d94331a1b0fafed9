package observations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/server/models"
)

// Repository covers both the change feed and the push path for
// observations, the only client-writable table.
type Repository interface {
	SelectLive(ctx context.Context, scope models.Scope) ([]*models.Observation, error)
	SelectCreatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Observation, error)
	SelectUpdatedSince(ctx context.Context, scope models.Scope, since time.Time) ([]*models.Observation, error)
	SelectDeletedSince(ctx context.Context, scope models.Scope, since time.Time) ([]string, error)

	// GetForUpdate reads and row-locks an observation (tombstones included).
	// Returns common.ErrorNotFound when no row has that stable id.
	GetForUpdate(ctx context.Context, stableID string) (*models.Observation, error)
	// Create inserts o and returns its server id. A stable id that already
	// exists yields common.ErrDuplicate.
	Create(ctx context.Context, o *models.Observation) (int64, error)
	// Update writes the mutable fields and updated_at of o by server id.
	Update(ctx context.Context, o *models.Observation) error
	// SoftDelete tombstones a live observation; false when nothing matched.
	SoftDelete(ctx context.Context, stableID string, at time.Time) (bool, error)
}
