package drift

import (
	"context"
	"log/slog"

	"github.com/klevu/catalog-sync/internal/catalog"
	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/stock"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// CriterionStockStatus is the id of the stock-status drift criterion.
const CriterionStockStatus = "stock_status"

// StockStatusProvider computes the current stock availability for a row's
// target in its parent context. A row tracked as a child of a parent is
// available only when both the child and the parent's rolled-up view are,
// which is why the same physical item can legitimately disagree with itself
// across rows.
type StockStatusProvider struct {
	registry stock.Registry
}

// NewStockStatusProvider creates the provider over a stock registry.
func NewStockStatusProvider(registry stock.Registry) *StockStatusProvider {
	return &StockStatusProvider{registry: registry}
}

// Value returns the boolean stock truth for (target, scope, parent).
func (p *StockStatusProvider) Value(ctx context.Context, target *domain.Product, _ domain.Scope, parent *domain.Product) (any, error) {
	available, err := stock.Availability(ctx, target, p.registry)
	if err != nil {
		return nil, err
	}

	if parent != nil {
		parentAvailable, err := stock.Availability(ctx, parent, p.registry)
		if err != nil {
			return nil, err
		}
		available = available && parentAvailable
	}

	return available, nil
}

// NewStockStatusCriterion assembles the stock-status criterion, the one
// criterion this service ships. Further criteria plug into the registry
// under the same snapshot contract.
func NewStockStatusCriterion(stores tenant.StoreMapProvider, entities catalog.Resolver, registry stock.Registry, logger *slog.Logger) *SnapshotCriterion {
	return NewSnapshotCriterion(CriterionStockStatus, stores, entities, NewStockStatusProvider(registry), logger)
}
