package drift

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/catalog"
	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/metrics"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// LiveValueProvider computes the current truth for one signal given an item,
// a scope and an optional parent context. Provider calls are the expensive
// step of drift detection.
type LiveValueProvider interface {
	Value(ctx context.Context, target *domain.Product, sc domain.Scope, parent *domain.Product) (any, error)
}

// SnapshotCriterion is the shared baseline-versus-live evaluation every
// criterion follows. It never calls the provider for unbaselined rows or for
// tenant keys that resolve to no scopes, iterates matching scopes in
// ascending store-id order, and stops at the first mismatch.
type SnapshotCriterion struct {
	id       string
	stores   tenant.StoreMapProvider
	entities catalog.Resolver
	live     LiveValueProvider
	logger   *slog.Logger
}

// NewSnapshotCriterion creates a criterion with the given id over a live
// value provider.
func NewSnapshotCriterion(id string, stores tenant.StoreMapProvider, entities catalog.Resolver, live LiveValueProvider, logger *slog.Logger) *SnapshotCriterion {
	return &SnapshotCriterion{
		id:       id,
		stores:   stores,
		entities: entities,
		live:     live,
		logger:   logger,
	}
}

func (c *SnapshotCriterion) ID() string {
	return c.id
}

// Evaluate reports drift for the row. A missing baseline or an unknown tenant
// key short-circuits to "no drift" with zero provider calls. A referenced
// entity that no longer exists is logged and leaves the verdict at "no
// drift": a row is never marked dirty or clean on incomplete information.
func (c *SnapshotCriterion) Evaluate(ctx context.Context, row *domain.TrackingRow) (Result, error) {
	baseline, ok := row.Snapshot.Baseline(c.id)
	if !ok {
		return Result{}, nil
	}

	scopes, err := c.stores.ScopesForTenant(ctx, row.TenantKey)
	if err != nil {
		return Result{}, fmt.Errorf("resolve scopes for tenant %s: %w", row.TenantKey, err)
	}
	if len(scopes) == 0 {
		return Result{}, nil
	}

	// Providers may hand out a shared slice (the per-batch cache does);
	// sort a copy so concurrent workers never write the same backing array.
	scopes = slices.Clone(scopes)
	slices.SortFunc(scopes, func(a, b domain.Scope) int {
		return cmp.Compare(a.StoreID, b.StoreID)
	})

	for _, sc := range scopes {
		target, err := c.entities.Product(ctx, row.TargetID, sc)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				c.logMissing(ctx, row, sc, row.TargetID)
				return Result{}, nil
			}
			return Result{}, fmt.Errorf("resolve target %d: %w", row.TargetID, err)
		}

		var parent *domain.Product
		if row.TargetParentID != nil {
			parent, err = c.entities.Product(ctx, *row.TargetParentID, sc)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					c.logMissing(ctx, row, sc, *row.TargetParentID)
					return Result{}, nil
				}
				return Result{}, fmt.Errorf("resolve parent %d: %w", *row.TargetParentID, err)
			}
		}

		metrics.ProviderCalls.WithLabelValues(c.id).Inc()
		current, err := c.live.Value(ctx, target, sc, parent)
		if err != nil {
			return Result{}, fmt.Errorf("criterion %s: live value for row %s in store %d: %w", c.id, row.Key(), sc.StoreID, err)
		}

		if !valuesEqual(current, baseline) {
			return Result{Drift: true, Observed: current}, nil
		}
	}

	return Result{}, nil
}

func (c *SnapshotCriterion) logMissing(ctx context.Context, row *domain.TrackingRow, sc domain.Scope, entityID int64) {
	c.logger.WarnContext(ctx, "referenced entity no longer exists, leaving row unchanged",
		slog.String("criterion", c.id),
		slog.String("row", row.Key()),
		slog.Int64("entity_id", entityID),
		slog.Int64("store_id", sc.StoreID),
	)
}
