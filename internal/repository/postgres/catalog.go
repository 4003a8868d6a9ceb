package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/klevu/catalog-sync/pkg/database"
	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

// CatalogRepository implements catalog.Resolver over the local replica of
// catalog entities kept fresh by the event consumers.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a PostgreSQL-backed catalog resolver.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Product resolves a catalog item. Store-level status overrides live in a
// JSONB column keyed by store id; scope resolution happens in the domain
// model, so the same loaded product serves every scope.
func (r *CatalogRepository) Product(ctx context.Context, id int64, _ domain.Scope) (*domain.Product, error) {
	query := `
		SELECT id, sku, type_id, status, status_by_store,
		       is_saleable, stock_qty, stock_in_stock
		FROM catalog_items
		WHERE id = $1`

	var (
		p             domain.Product
		statusByStore map[int64]domain.ProductStatus
		stockQty      *float64
		stockInStock  *bool
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.SKU,
		&p.TypeID,
		&p.Status,
		&statusByStore,
		&p.IsSaleable,
		&stockQty,
		&stockInStock,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get catalog item %d: %w", id, err)
	}

	p.StatusByStore = statusByStore
	if stockQty != nil && stockInStock != nil {
		p.StockData = &domain.StockData{Qty: *stockQty, InStock: *stockInStock}
	}
	return &p, nil
}

// Attribute resolves a catalog attribute by id.
func (r *CatalogRepository) Attribute(ctx context.Context, id int64) (*domain.Attribute, error) {
	query := `
		SELECT id, code, index_as
		FROM catalog_attributes
		WHERE id = $1`

	var a domain.Attribute
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Code, &a.IndexAs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get catalog attribute %d: %w", id, err)
	}
	return &a, nil
}
