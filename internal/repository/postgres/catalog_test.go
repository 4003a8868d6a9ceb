package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klevu/catalog-sync/pkg/database"
	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

var catalogItemColumns = []string{
	"id", "sku", "type_id", "status", "status_by_store",
	"is_saleable", "stock_qty", "stock_in_stock",
}

func setupCatalogRepo(t *testing.T) (*CatalogRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewCatalogRepository(mock), mock
}

func float64Ptr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func TestCatalogRepository_Product_Success(t *testing.T) {
	repo, mock := setupCatalogRepo(t)
	defer mock.Close()

	overrides := map[int64]domain.ProductStatus{2: domain.ProductStatusDisabled}
	mock.ExpectQuery("SELECT .+ FROM catalog_items").
		WithArgs(int64(100)).
		WillReturnRows(
			pgxmock.NewRows(catalogItemColumns).
				AddRow(int64(100), "SKU-100", "simple", domain.ProductStatusEnabled,
					overrides, (*bool)(nil), float64Ptr(5), boolPtr(true)),
		)

	p, err := repo.Product(context.Background(), 100, domain.Scope{StoreID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.ID)
	assert.Equal(t, "SKU-100", p.SKU)
	assert.Equal(t, domain.ProductStatusEnabled, p.StatusIn(1))
	assert.Equal(t, domain.ProductStatusDisabled, p.StatusIn(2))
	require.NotNil(t, p.StockData)
	assert.True(t, p.StockData.InStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_Product_WithoutStockRow(t *testing.T) {
	repo, mock := setupCatalogRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM catalog_items").
		WithArgs(int64(100)).
		WillReturnRows(
			pgxmock.NewRows(catalogItemColumns).
				AddRow(int64(100), "SKU-100", "simple", domain.ProductStatusEnabled,
					map[int64]domain.ProductStatus(nil), (*bool)(nil), (*float64)(nil), (*bool)(nil)),
		)

	p, err := repo.Product(context.Background(), 100, domain.Scope{StoreID: 1})
	require.NoError(t, err)
	assert.Nil(t, p.StockData)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_Product_NotFound(t *testing.T) {
	repo, mock := setupCatalogRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM catalog_items").
		WithArgs(int64(999)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Product(context.Background(), 999, domain.Scope{StoreID: 1})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_Attribute_Success(t *testing.T) {
	repo, mock := setupCatalogRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM catalog_attributes").
		WithArgs(int64(7)).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "code", "index_as"}).
				AddRow(int64(7), "color", int64(2)),
		)

	a, err := repo.Attribute(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "color", a.Code)
	assert.Equal(t, int64(2), a.IndexAs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_Attribute_NotFound(t *testing.T) {
	repo, mock := setupCatalogRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM catalog_attributes").
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Attribute(context.Background(), 8)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
