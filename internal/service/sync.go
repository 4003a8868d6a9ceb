// Package service orchestrates drift detection and eligibility refresh over
// tracking rows.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/catalog"
	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/drift"
	"github.com/klevu/catalog-sync/internal/eligibility"
	"github.com/klevu/catalog-sync/internal/repository"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// ChainFactory builds a fresh indexability chain. Chains hold a per-worker
// scope tracker, so concurrent workers each build their own instead of
// sharing one.
type ChainFactory func() *eligibility.Chain

// SyncService wires the drift detector and the indexability chains into the
// operations collaborators call: single-row evaluation, batch triggers and
// the scheduled audit pass.
type SyncService struct {
	rows     repository.TrackingRowStore
	stores   tenant.StoreMapProvider
	entities catalog.Resolver
	detector *drift.Detector

	productChain   ChainFactory
	attributeChain ChainFactory

	logger        *slog.Logger
	auditPageSize int
	auditWorkers  int
}

// SyncOption customizes a SyncService.
type SyncOption func(*SyncService)

// WithAuditPageSize sets the keyset page size of the audit pass.
func WithAuditPageSize(n int) SyncOption {
	return func(s *SyncService) {
		if n > 0 {
			s.auditPageSize = n
		}
	}
}

// WithAuditWorkers sets the audit parallelism.
func WithAuditWorkers(n int) SyncOption {
	return func(s *SyncService) {
		if n > 0 {
			s.auditWorkers = n
		}
	}
}

// NewSyncService creates the service.
func NewSyncService(
	rows repository.TrackingRowStore,
	stores tenant.StoreMapProvider,
	entities catalog.Resolver,
	detector *drift.Detector,
	productChain ChainFactory,
	attributeChain ChainFactory,
	logger *slog.Logger,
	opts ...SyncOption,
) *SyncService {
	s := &SyncService{
		rows:           rows,
		stores:         stores,
		entities:       entities,
		detector:       detector,
		productChain:   productChain,
		attributeChain: attributeChain,
		logger:         logger,
		auditPageSize:  500,
		auditWorkers:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnItemsChanged forwards a change trigger to the drift detector.
func (s *SyncService) OnItemsChanged(ctx context.Context, itemIDs []int64) error {
	return s.detector.OnItemsChanged(ctx, itemIDs)
}

// ScopeDecision is the eligibility verdict for one store scope.
type ScopeDecision struct {
	StoreID   int64 `json:"store_id"`
	Indexable bool  `json:"indexable"`
}

// EvaluateItem runs the product chain for one item across every scope of the
// tenant and returns the per-scope verdicts. Used by the operational API.
func (s *SyncService) EvaluateItem(ctx context.Context, tenantKey string, itemID int64, subtype domain.Subtype) ([]ScopeDecision, error) {
	scopes, err := s.stores.ScopesForTenant(ctx, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("resolve scopes for tenant %s: %w", tenantKey, err)
	}
	if len(scopes) == 0 {
		return nil, apperrors.NotFound("tenant", tenantKey)
	}

	chain := s.productChain()
	decisions := make([]ScopeDecision, 0, len(scopes))
	for _, sc := range scopes {
		p, err := s.entities.Product(ctx, itemID, sc)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("product", fmt.Sprintf("%d", itemID))
			}
			return nil, err
		}
		ok, err := chain.IsIndexable(ctx, p, sc, subtype)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, ScopeDecision{StoreID: sc.StoreID, Indexable: ok})
	}
	return decisions, nil
}

// RefreshRow re-evaluates one row's eligibility and next action, saving it
// when anything changed. A row is indexable when at least one of its
// tenant's scopes accepts it. Rows whose target cannot be resolved in any
// scope are left untouched.
func (s *SyncService) RefreshRow(ctx context.Context, row *domain.TrackingRow, productChain, attributeChain *eligibility.Chain) error {
	scopes, err := s.stores.ScopesForTenant(ctx, row.TenantKey)
	if err != nil {
		return fmt.Errorf("resolve scopes for tenant %s: %w", row.TenantKey, err)
	}
	if len(scopes) == 0 {
		return nil
	}

	indexable := false
	resolvedAny := false
	for _, sc := range scopes {
		subject, chain, err := s.subjectFor(ctx, row, sc, productChain, attributeChain)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				s.logger.WarnContext(ctx, "tracked entity missing in scope, skipping",
					slog.String("row", row.Key()),
					slog.Int64("store_id", sc.StoreID),
				)
				continue
			}
			return err
		}
		resolvedAny = true

		ok, err := chain.IsIndexable(ctx, subject, sc, row.Subtype)
		if err != nil {
			return err
		}
		if ok {
			indexable = true
			break
		}
	}
	if !resolvedAny {
		return nil
	}

	next := nextActionFor(row, indexable)
	if indexable == row.IsIndexable && next == row.NextAction {
		return nil
	}

	row.IsIndexable = indexable
	row.NextAction = next
	if err := s.rows.Save(ctx, row); err != nil {
		return fmt.Errorf("save row %s: %w", row.Key(), err)
	}

	s.logger.InfoContext(ctx, "tracking row eligibility refreshed",
		slog.String("row", row.Key()),
		slog.Bool("indexable", indexable),
		slog.String("next_action", string(next)),
	)
	return nil
}

// subjectFor resolves the entity a row tracks and the chain that judges it.
func (s *SyncService) subjectFor(ctx context.Context, row *domain.TrackingRow, sc domain.Scope, productChain, attributeChain *eligibility.Chain) (any, *eligibility.Chain, error) {
	switch row.EntityType {
	case domain.EntityTypeAttribute:
		a, err := s.entities.Attribute(ctx, row.TargetID)
		if err != nil {
			return nil, nil, err
		}
		return a, attributeChain, nil
	default:
		p, err := s.entities.Product(ctx, row.TargetID, sc)
		if err != nil {
			return nil, nil, err
		}
		return p, productChain, nil
	}
}

// nextActionFor applies the action transition when eligibility is refreshed:
// newly eligible rows are added, eligible-and-drifted rows are updated, rows
// that fell out of eligibility after a sync are deleted.
func nextActionFor(row *domain.TrackingRow, indexable bool) domain.Action {
	if indexable {
		switch {
		case row.LastAction == domain.ActionNone, row.LastAction == domain.ActionDelete:
			return domain.ActionAdd
		case row.RequiresUpdate:
			return domain.ActionUpdate
		default:
			return domain.ActionNone
		}
	}

	if row.LastAction == domain.ActionAdd || row.LastAction == domain.ActionUpdate {
		return domain.ActionDelete
	}
	return domain.ActionNone
}

// AuditReport summarizes one audit pass.
type AuditReport struct {
	RowsSeen   int `json:"rows_seen"`
	RowsFailed int `json:"rows_failed"`
}

// RunAudit walks all tracking rows in keyset pages and re-runs both drift
// detection and eligibility refresh per row. Pages fan out over a bounded
// worker pool; every worker builds its own chains so scope trackers are
// never shared. Per-row failures are isolated, counted and logged.
func (s *SyncService) RunAudit(ctx context.Context) (AuditReport, error) {
	s.detector.ResetBatchCache()

	var (
		report AuditReport
		mu     sync.Mutex
	)

	process := func(row *domain.TrackingRow, productChain, attributeChain *eligibility.Chain) {
		err := func() error {
			if _, err := s.detector.EvaluateRow(ctx, row); err != nil {
				return err
			}
			return s.RefreshRow(ctx, row, productChain, attributeChain)
		}()

		mu.Lock()
		report.RowsSeen++
		if err != nil {
			report.RowsFailed++
		}
		mu.Unlock()

		if err != nil {
			s.logger.ErrorContext(ctx, "audit row failed",
				slog.String("row", row.Key()),
				slog.String("error", err.Error()),
			)
		}
	}

	work := make(chan domain.TrackingRow)
	var wg sync.WaitGroup
	for i := 0; i < s.auditWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			productChain := s.productChain()
			attributeChain := s.attributeChain()
			for row := range work {
				row := row
				process(&row, productChain, attributeChain)
			}
		}()
	}

	var afterID int64
	var pageErr error
	for {
		page, err := s.rows.List(ctx, afterID, s.auditPageSize)
		if err != nil {
			pageErr = fmt.Errorf("list tracking rows after %d: %w", afterID, err)
			break
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			work <- row
		}
		afterID = page[len(page)-1].ID
		if len(page) < s.auditPageSize {
			break
		}
	}
	close(work)
	wg.Wait()

	s.logger.InfoContext(ctx, "audit pass finished",
		slog.Int("rows_seen", report.RowsSeen),
		slog.Int("rows_failed", report.RowsFailed),
	)
	return report, pageErr
}
