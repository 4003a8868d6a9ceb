package drift

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/metrics"
	"github.com/klevu/catalog-sync/internal/repository"
)

// Notifier is told about rows newly flagged for re-extraction, so downstream
// schedulers do not need to poll. Optional.
type Notifier interface {
	RowFlagged(ctx context.Context, row *domain.TrackingRow, criteria []string) error
}

// BatchCache is reset once per batch run. The tenant store-map cache
// satisfies it.
type BatchCache interface {
	Reset()
}

// Detector fans a physical catalog change out over every tracking row that
// references the changed item and runs the registered criteria per row. Rows
// are independent: each carries its own parent context, so one row going
// dirty says nothing about its siblings.
type Detector struct {
	rows     repository.TrackingRowStore
	registry *Registry
	cache    BatchCache
	notifier Notifier
	logger   *slog.Logger
	workers  int
}

// DetectorOption customizes a Detector.
type DetectorOption func(*Detector)

// WithBatchCache attaches a cache reset at the start of every batch run.
func WithBatchCache(c BatchCache) DetectorOption {
	return func(d *Detector) { d.cache = c }
}

// WithNotifier attaches a flagged-row notifier.
func WithNotifier(n Notifier) DetectorOption {
	return func(d *Detector) { d.notifier = n }
}

// WithWorkers sets the batch parallelism. All rows of one item stay on one
// worker, preserving single-writer-per-row semantics.
func WithWorkers(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.workers = n
		}
	}
}

// NewDetector creates a detector over a row store and criteria registry.
func NewDetector(rows repository.TrackingRowStore, registry *Registry, logger *slog.Logger, opts ...DetectorOption) *Detector {
	d := &Detector{
		rows:     rows,
		registry: registry,
		logger:   logger,
		workers:  1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ResetBatchCache resets the attached batch cache. Callers that drive
// EvaluateRow directly across a batch of their own call this once up front.
func (d *Detector) ResetBatchCache() {
	if d.cache != nil {
		d.cache.Reset()
	}
}

// OnItemChanged re-evaluates every tracking row affected by one changed item.
func (d *Detector) OnItemChanged(ctx context.Context, itemID int64) error {
	return d.OnItemsChanged(ctx, []int64{itemID})
}

// OnItemsChanged runs a batch pass over many changed items. Per-item failures
// are isolated and joined into the returned error; one bad item never aborts
// the rest of the batch.
func (d *Detector) OnItemsChanged(ctx context.Context, itemIDs []int64) error {
	if d.cache != nil {
		d.cache.Reset()
	}

	if d.workers <= 1 || len(itemIDs) <= 1 {
		var errs []error
		for _, id := range itemIDs {
			if err := d.processItem(ctx, id); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	ids := make(chan int64)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				if err := d.processItem(ctx, id); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

	for _, id := range itemIDs {
		ids <- id
	}
	close(ids)
	wg.Wait()

	return errors.Join(errs...)
}

// processItem evaluates every row referencing one item, isolating per-row
// failures.
func (d *Detector) processItem(ctx context.Context, itemID int64) error {
	rows, err := d.rows.FindByTargetID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("find rows for item %d: %w", itemID, err)
	}

	var errs []error
	for i := range rows {
		if _, err := d.EvaluateRow(ctx, &rows[i]); err != nil {
			metrics.RowEvaluationFailures.Inc()
			d.logger.ErrorContext(ctx, "row evaluation failed",
				slog.String("row", rows[i].Key()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("row %s: %w", rows[i].Key(), err))
		}
	}
	return errors.Join(errs...)
}

// EvaluateRow runs every registered criterion against one row. If any
// criterion reports drift, the row's requires-update flag and the drifted
// criteria's baselines are refreshed together in a single save. Criteria
// combine with OR; each drifted criterion refreshes only its own baseline.
func (d *Detector) EvaluateRow(ctx context.Context, row *domain.TrackingRow) (bool, error) {
	metrics.RowsEvaluated.Inc()

	var drifted []string
	for _, criterion := range d.registry.All() {
		res, err := criterion.Evaluate(ctx, row)
		if err != nil {
			return false, err
		}
		if res.Drift {
			metrics.DriftDetections.WithLabelValues(criterion.ID()).Inc()
			row.MarkDirty(criterion.ID(), res.Observed)
			drifted = append(drifted, criterion.ID())
		}
	}

	if len(drifted) == 0 {
		return false, nil
	}

	if err := d.rows.Save(ctx, row); err != nil {
		return false, fmt.Errorf("save row %s: %w", row.Key(), err)
	}

	d.logger.InfoContext(ctx, "tracking row flagged for update",
		slog.String("row", row.Key()),
		slog.Any("criteria", drifted),
	)

	if d.notifier != nil {
		if err := d.notifier.RowFlagged(ctx, row, drifted); err != nil {
			// Notification is best-effort; the row state is already saved.
			d.logger.WarnContext(ctx, "flagged-row notification failed",
				slog.String("row", row.Key()),
				slog.String("error", err.Error()),
			)
		}
	}

	return true, nil
}
