package eligibility

import (
	"context"
	"fmt"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

// AttributeIndexTypeCondition vetoes attributes whose configured "index as"
// value resolves to "do not index". An unrecognized raw value is a malformed
// configuration: it vetoes with a warning instead of failing the batch.
type AttributeIndexTypeCondition struct{}

// NewAttributeIndexTypeCondition creates the condition.
func NewAttributeIndexTypeCondition() *AttributeIndexTypeCondition {
	return &AttributeIndexTypeCondition{}
}

func (c *AttributeIndexTypeCondition) ID() string {
	return ConditionAttributeIndexType
}

// Evaluate returns false for do-not-index and unrecognized index types.
func (c *AttributeIndexTypeCondition) Evaluate(_ context.Context, subject any, _ domain.Scope, _ domain.Subtype) (Decision, error) {
	a, ok := subject.(*domain.Attribute)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s expects *domain.Attribute, got %T", apperrors.ErrInvalidEntity, c.ID(), subject)
	}

	switch domain.IndexTypeOf(a.IndexAs) {
	case domain.IndexTypeIndexable, domain.IndexTypeSearchable:
		return indexable(), nil
	case domain.IndexTypeNone:
		return veto("attribute is configured as do-not-index"), nil
	default:
		return Decision{
			Reason: fmt.Sprintf("unrecognized index type value %d", a.IndexAs),
			Warn:   true,
		}, nil
	}
}
