package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/klevu/catalog-sync/pkg/database"
	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

// TrackingRowRepository implements repository.TrackingRowStore using
// PostgreSQL. The snapshot column is JSONB so the requires-update flag and
// the criterion baselines always change in one statement.
type TrackingRowRepository struct {
	pool database.DBTX
}

// NewTrackingRowRepository creates a PostgreSQL-backed tracking row store.
func NewTrackingRowRepository(pool database.DBTX) *TrackingRowRepository {
	return &TrackingRowRepository{pool: pool}
}

const trackingRowColumns = `
	id, tenant_key, target_id, target_parent_id, entity_type, subtype,
	is_indexable, next_action, last_action, last_action_at,
	requires_update, snapshot, updated_at`

func scanTrackingRow(row pgx.Row) (*domain.TrackingRow, error) {
	var r domain.TrackingRow
	err := row.Scan(
		&r.ID,
		&r.TenantKey,
		&r.TargetID,
		&r.TargetParentID,
		&r.EntityType,
		&r.Subtype,
		&r.IsIndexable,
		&r.NextAction,
		&r.LastAction,
		&r.LastActionAt,
		&r.RequiresUpdate,
		&r.Snapshot,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if r.Snapshot == nil {
		r.Snapshot = make(domain.Snapshot)
	}
	return &r, nil
}

func collectTrackingRows(rows pgx.Rows) ([]domain.TrackingRow, error) {
	defer rows.Close()

	var out []domain.TrackingRow
	for rows.Next() {
		r, err := scanTrackingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracking row: %w", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracking rows: %w", err)
	}
	return out, nil
}

// FindByTargetID returns every row referencing the item in any role: as its
// own target, as a child of a parent, plus the rows of any parent the item
// belongs to.
func (r *TrackingRowRepository) FindByTargetID(ctx context.Context, itemID int64) ([]domain.TrackingRow, error) {
	query := `
		SELECT` + trackingRowColumns + `
		FROM tracking_rows
		WHERE target_id = $1
		   OR target_parent_id = $1
		   OR target_id IN (
				SELECT target_parent_id FROM tracking_rows
				WHERE target_id = $1 AND target_parent_id IS NOT NULL)
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("find tracking rows by target id: %w", err)
	}
	return collectTrackingRows(rows)
}

// FindByKey looks up one row by its composite identity.
func (r *TrackingRowRepository) FindByKey(ctx context.Context, tenantKey string, targetID int64, targetParentID *int64, subtype domain.Subtype) (*domain.TrackingRow, error) {
	query := `
		SELECT` + trackingRowColumns + `
		FROM tracking_rows
		WHERE tenant_key = $1
		  AND target_id = $2
		  AND target_parent_id IS NOT DISTINCT FROM $3
		  AND subtype = $4`

	row, err := scanTrackingRow(r.pool.QueryRow(ctx, query, tenantKey, targetID, targetParentID, subtype))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find tracking row by key: %w", err)
	}
	return row, nil
}

// List pages rows by ascending id.
func (r *TrackingRowRepository) List(ctx context.Context, afterID int64, limit int) ([]domain.TrackingRow, error) {
	query := `
		SELECT` + trackingRowColumns + `
		FROM tracking_rows
		WHERE id > $1
		ORDER BY id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tracking rows: %w", err)
	}
	return collectTrackingRows(rows)
}

// Create inserts a new tracking row.
func (r *TrackingRowRepository) Create(ctx context.Context, row *domain.TrackingRow) (*domain.TrackingRow, error) {
	if row.Snapshot == nil {
		row.Snapshot = make(domain.Snapshot)
	}

	query := `
		INSERT INTO tracking_rows (
			tenant_key, target_id, target_parent_id, entity_type, subtype,
			is_indexable, next_action, last_action, last_action_at,
			requires_update, snapshot, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING` + trackingRowColumns

	now := time.Now().UTC()
	created, err := scanTrackingRow(r.pool.QueryRow(ctx, query,
		row.TenantKey,
		row.TargetID,
		row.TargetParentID,
		row.EntityType,
		row.Subtype,
		row.IsIndexable,
		row.NextAction,
		row.LastAction,
		row.LastActionAt,
		row.RequiresUpdate,
		row.Snapshot,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("create tracking row: %w", err)
	}
	return created, nil
}

// Save persists the row's mutable sync state in a single statement.
func (r *TrackingRowRepository) Save(ctx context.Context, row *domain.TrackingRow) error {
	query := `
		UPDATE tracking_rows SET
			is_indexable = $2,
			next_action = $3,
			last_action = $4,
			last_action_at = $5,
			requires_update = $6,
			snapshot = $7,
			updated_at = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		row.ID,
		row.IsIndexable,
		row.NextAction,
		row.LastAction,
		row.LastActionAt,
		row.RequiresUpdate,
		row.Snapshot,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save tracking row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a row permanently.
func (r *TrackingRowRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tracking_rows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tracking row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
