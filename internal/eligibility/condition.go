// Package eligibility implements the indexability chain: ordered, toggleable
// predicates deciding whether a catalog entity should be indexed at all.
package eligibility

import (
	"context"

	"github.com/klevu/catalog-sync/internal/domain"
)

// Condition IDs, used for tenant toggles, metrics and log lines.
const (
	ConditionDisabledItem       = "disabled_item"
	ConditionOutOfStock         = "out_of_stock"
	ConditionAttributeIndexType = "attribute_index_type"
)

// Decision is the outcome of one condition. Reason is set on a veto; Warn
// raises the chain's diagnostic line to warning level, used when the veto is
// caused by a malformed configuration value rather than catalog state.
type Decision struct {
	Indexable bool
	Reason    string
	Warn      bool
}

// Condition is one independently testable eligibility predicate. A subject
// of the wrong entity kind is a programming error: Evaluate returns an error
// wrapping apperrors.ErrInvalidEntity instead of silently vetoing.
type Condition interface {
	ID() string
	Evaluate(ctx context.Context, subject any, sc domain.Scope, subtype domain.Subtype) (Decision, error)
}

func indexable() Decision {
	return Decision{Indexable: true}
}

func veto(reason string) Decision {
	return Decision{Reason: reason}
}
