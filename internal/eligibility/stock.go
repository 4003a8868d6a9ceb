package eligibility

import (
	"context"
	"fmt"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/stock"
)

// OutOfStockCondition vetoes items whose computed stock availability is
// falsy. Availability resolution follows the shared priority order in the
// stock package.
type OutOfStockCondition struct {
	registry stock.Registry
}

// NewOutOfStockCondition creates the condition over a stock registry.
func NewOutOfStockCondition(registry stock.Registry) *OutOfStockCondition {
	return &OutOfStockCondition{registry: registry}
}

func (c *OutOfStockCondition) ID() string {
	return ConditionOutOfStock
}

// Evaluate returns false when the product is out of stock for the scope.
func (c *OutOfStockCondition) Evaluate(ctx context.Context, subject any, _ domain.Scope, _ domain.Subtype) (Decision, error) {
	p, ok := subject.(*domain.Product)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s expects *domain.Product, got %T", apperrors.ErrInvalidEntity, c.ID(), subject)
	}

	available, err := stock.Availability(ctx, p, c.registry)
	if err != nil {
		return Decision{}, err
	}
	if !available {
		return veto("product is out of stock"), nil
	}
	return indexable(), nil
}
