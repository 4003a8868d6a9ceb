// Package drift implements the requires-update engine: named criteria that
// compare a tracking row's snapshot baseline against freshly computed values,
// and the detector that fans a catalog change out over affected rows.
package drift

import (
	"context"
	"fmt"

	"github.com/klevu/catalog-sync/internal/domain"
)

// Result is the outcome of one criterion over one row. Observed carries the
// value from the scope where the mismatch was found; the caller refreshes the
// row's baseline to it when Drift is set.
type Result struct {
	Drift    bool
	Observed any
}

// Criterion is one registered requires-update rule. Evaluate answers "does
// this row require re-extraction because of me?" without mutating the row.
type Criterion interface {
	ID() string
	Evaluate(ctx context.Context, row *domain.TrackingRow) (Result, error)
}

// Registry holds the registered criteria in a stable registration order.
// Criteria combine with OR semantics at the row level.
type Registry struct {
	ordered []Criterion
	byID    map[string]Criterion
}

// NewRegistry creates a registry over the given criteria.
func NewRegistry(criteria ...Criterion) (*Registry, error) {
	r := &Registry{byID: make(map[string]Criterion, len(criteria))}
	for _, c := range criteria {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a criterion; duplicate IDs are rejected.
func (r *Registry) Register(c Criterion) error {
	if _, exists := r.byID[c.ID()]; exists {
		return fmt.Errorf("criterion %q already registered", c.ID())
	}
	r.byID[c.ID()] = c
	r.ordered = append(r.ordered, c)
	return nil
}

// All returns the criteria in registration order.
func (r *Registry) All() []Criterion {
	return r.ordered
}

// valuesEqual compares a freshly observed value against a snapshot baseline.
// Baselines round-trip through JSONB, which turns every number into float64,
// so numeric kinds are normalized before comparison.
func valuesEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
