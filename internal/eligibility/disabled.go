package eligibility

import (
	"context"
	"fmt"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

// DisabledItemCondition vetoes items whose status flag marks them inactive
// for the scope under evaluation.
type DisabledItemCondition struct{}

// NewDisabledItemCondition creates the condition.
func NewDisabledItemCondition() *DisabledItemCondition {
	return &DisabledItemCondition{}
}

func (c *DisabledItemCondition) ID() string {
	return ConditionDisabledItem
}

// Evaluate returns false when the product is disabled in the given store.
func (c *DisabledItemCondition) Evaluate(_ context.Context, subject any, sc domain.Scope, _ domain.Subtype) (Decision, error) {
	p, ok := subject.(*domain.Product)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s expects *domain.Product, got %T", apperrors.ErrInvalidEntity, c.ID(), subject)
	}

	if p.StatusIn(sc.StoreID) == domain.ProductStatusDisabled {
		return veto("product is disabled for the store"), nil
	}
	return indexable(), nil
}
