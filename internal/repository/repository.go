// Package repository defines the persistence interfaces the sync core
// consumes.
package repository

import (
	"context"

	"github.com/klevu/catalog-sync/internal/domain"
)

// TrackingRowStore persists sync-tracking rows in an external keyed store.
type TrackingRowStore interface {
	// FindByTargetID returns every row referencing the item in any role:
	// rows tracking it directly, rows tracking it as a child of a parent,
	// and the rows of any parent it belongs to.
	FindByTargetID(ctx context.Context, itemID int64) ([]domain.TrackingRow, error)

	// FindByKey looks up one row by its composite identity. A nil parent id
	// matches the standalone row.
	FindByKey(ctx context.Context, tenantKey string, targetID int64, targetParentID *int64, subtype domain.Subtype) (*domain.TrackingRow, error)

	// List pages rows by ascending id using keyset pagination.
	List(ctx context.Context, afterID int64, limit int) ([]domain.TrackingRow, error)

	// Create inserts a new row and returns it with its assigned id.
	Create(ctx context.Context, row *domain.TrackingRow) (*domain.TrackingRow, error)

	// Save persists the row's mutable sync state. Flag and snapshot are
	// written in one statement so they change together.
	Save(ctx context.Context, row *domain.TrackingRow) error

	// Delete removes a row permanently.
	Delete(ctx context.Context, id int64) error
}
