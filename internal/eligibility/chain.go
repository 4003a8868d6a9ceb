package eligibility

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/metrics"
	"github.com/klevu/catalog-sync/internal/scope"
	"github.com/klevu/catalog-sync/internal/stock"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// Chain composes eligibility conditions with AND semantics and short-circuit
// evaluation: the first veto wins and later conditions never run. Conditions
// disabled for the tenant are skipped entirely. There is no caching across
// calls; conditions are cheap next to the cost of a wrong answer.
//
// A Chain holds a scope tracker and is therefore not safe for concurrent
// use: build one chain per worker.
type Chain struct {
	conditions []Condition
	flags      tenant.FlagsProvider
	scopes     *scope.Tracker
	logger     *slog.Logger
}

// NewChain creates a chain over an ordered condition list.
func NewChain(conditions []Condition, flags tenant.FlagsProvider, scopes *scope.Tracker, logger *slog.Logger) *Chain {
	return &Chain{
		conditions: conditions,
		flags:      flags,
		scopes:     scopes,
		logger:     logger,
	}
}

// NewProductChain assembles the item-level chain in its fixed configured
// order: disabled check first (no lookups), stock check second.
func NewProductChain(flags tenant.FlagsProvider, registry stock.Registry, scopes *scope.Tracker, logger *slog.Logger) *Chain {
	return NewChain(
		[]Condition{
			NewDisabledItemCondition(),
			NewOutOfStockCondition(registry),
		},
		flags, scopes, logger,
	)
}

// NewAttributeChain assembles the attribute-level chain.
func NewAttributeChain(flags tenant.FlagsProvider, scopes *scope.Tracker, logger *slog.Logger) *Chain {
	return NewChain(
		[]Condition{
			NewAttributeIndexTypeCondition(),
		},
		flags, scopes, logger,
	)
}

// IsIndexable evaluates the enabled conditions in order and returns true only
// if every one of them passes. Invalid-entity errors from conditions
// propagate untouched.
func (c *Chain) IsIndexable(ctx context.Context, subject any, sc domain.Scope, subtype domain.Subtype) (bool, error) {
	flags, err := c.flags.ConditionFlags(ctx, sc.TenantKey)
	if err != nil {
		return false, fmt.Errorf("resolve condition flags for tenant %s: %w", sc.TenantKey, err)
	}

	for _, cond := range c.conditions {
		if !flags.Enabled(cond.ID()) {
			continue
		}

		dec, err := cond.Evaluate(ctx, subject, sc, subtype)
		if err != nil {
			return false, err
		}
		if !dec.Indexable {
			metrics.ConditionVetoes.WithLabelValues(cond.ID()).Inc()
			c.logVeto(ctx, cond.ID(), subject, sc, subtype, dec)
			return false, nil
		}
	}

	return true, nil
}

// logVeto emits the single diagnostic line for a veto, evaluated under the
// vetoing scope so the line is attributed to that store even when the caller
// currently holds a different scope or none at all.
func (c *Chain) logVeto(ctx context.Context, conditionID string, subject any, sc domain.Scope, subtype domain.Subtype, dec Decision) {
	_ = c.scopes.With(sc, func() error {
		l := c.scopes.Annotate(c.logger)
		lvl := slog.LevelDebug
		if dec.Warn {
			lvl = slog.LevelWarn
		}
		l.Log(ctx, lvl, "entity not indexable",
			slog.String("condition", conditionID),
			slog.String("subject", subjectRef(subject)),
			slog.String("subtype", string(subtype)),
			slog.String("reason", dec.Reason),
		)
		return nil
	})
}

// subjectRef identifies the subject in log lines without assuming its kind.
func subjectRef(subject any) string {
	switch s := subject.(type) {
	case *domain.Product:
		return fmt.Sprintf("product:%d", s.ID)
	case *domain.Attribute:
		return fmt.Sprintf("attribute:%d", s.ID)
	default:
		return fmt.Sprintf("%T", subject)
	}
}
