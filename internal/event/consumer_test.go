package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"
	pkgkafka "github.com/klevu/catalog-sync/pkg/kafka"

	"github.com/klevu/catalog-sync/internal/catalog"
	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/drift"
	"github.com/klevu/catalog-sync/internal/eligibility"
	"github.com/klevu/catalog-sync/internal/scope"
	"github.com/klevu/catalog-sync/internal/service"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// queriedRowStore records which item ids drift evaluation was triggered for.
type queriedRowStore struct {
	queried []int64
}

func (s *queriedRowStore) FindByTargetID(_ context.Context, itemID int64) ([]domain.TrackingRow, error) {
	s.queried = append(s.queried, itemID)
	return nil, nil
}

func (s *queriedRowStore) FindByKey(context.Context, string, int64, *int64, domain.Subtype) (*domain.TrackingRow, error) {
	return nil, apperrors.ErrNotFound
}

func (s *queriedRowStore) List(context.Context, int64, int) ([]domain.TrackingRow, error) {
	return nil, nil
}

func (s *queriedRowStore) Create(_ context.Context, row *domain.TrackingRow) (*domain.TrackingRow, error) {
	return row, nil
}

func (s *queriedRowStore) Save(context.Context, *domain.TrackingRow) error { return nil }

func (s *queriedRowStore) Delete(context.Context, int64) error { return nil }

type recordingStockWriter struct {
	items map[int64]bool
	err   error
}

func (w *recordingStockWriter) Put(_ context.Context, itemID int64, inStock bool) error {
	if w.err != nil {
		return w.err
	}
	if w.items == nil {
		w.items = make(map[int64]bool)
	}
	w.items[itemID] = inStock
	return nil
}

func newTestConsumer(t *testing.T, stocks StockWriter) (*Consumer, *queriedRowStore) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := &queriedRowStore{}
	registry, err := drift.NewRegistry()
	require.NoError(t, err)
	detector := drift.NewDetector(store, registry, logger)

	flags := tenant.NewStaticFlags(nil)
	stores := tenant.NewStaticStoreMap(domain.Scope{StoreID: 1, TenantKey: "acme"})
	productChain := func() *eligibility.Chain {
		return eligibility.NewProductChain(flags, nil, scope.NewTracker(), logger)
	}
	attributeChain := func() *eligibility.Chain {
		return eligibility.NewAttributeChain(flags, scope.NewTracker(), logger)
	}
	svc := service.NewSyncService(store, stores, catalog.NewMemoryResolver(), detector, productChain, attributeChain, logger)

	return NewConsumer(svc, stocks, logger), store
}

func mustEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()
	ev, err := pkgkafka.NewEvent(eventType, "agg-1", "test", "test", data)
	require.NoError(t, err)
	return ev
}

func TestConsumer_ProductUpdatedTriggersDriftEvaluation(t *testing.T) {
	c, store := newTestConsumer(t, nil)

	ev := mustEvent(t, TopicProductUpdated, ProductUpdatedData{ItemIDs: []int64{100, 101}})
	err := c.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101}, store.queried)
}

func TestConsumer_ProductUpdatedWithoutItemsIsNoop(t *testing.T) {
	c, store := newTestConsumer(t, nil)

	ev := mustEvent(t, TopicProductUpdated, ProductUpdatedData{})
	err := c.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Empty(t, store.queried)
}

func TestConsumer_StockChangedWritesThroughAndEvaluates(t *testing.T) {
	stocks := &recordingStockWriter{}
	c, store := newTestConsumer(t, stocks)

	inStock := false
	ev := mustEvent(t, TopicStockChanged, StockChangedData{ItemID: 100, InStock: &inStock})
	err := c.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{100: false}, stocks.items)
	assert.Equal(t, []int64{100}, store.queried)
}

func TestConsumer_StockRegistryFailureDoesNotFailTheEvent(t *testing.T) {
	stocks := &recordingStockWriter{err: errors.New("redis down")}
	c, store := newTestConsumer(t, stocks)

	inStock := true
	ev := mustEvent(t, TopicStockChanged, StockChangedData{ItemID: 100, InStock: &inStock})
	err := c.Handle(context.Background(), ev)
	require.NoError(t, err, "registry write-through is best-effort")
	assert.Equal(t, []int64{100}, store.queried)
}

func TestConsumer_AttributeUpdatedFansOutOverAffectedItems(t *testing.T) {
	c, store := newTestConsumer(t, nil)

	ev := mustEvent(t, TopicAttributeUpdated, AttributeUpdatedData{
		AttributeID:     7,
		AffectedItemIDs: []int64{100, 101, 102},
	})
	err := c.Handle(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 101, 102}, store.queried)
}

func TestConsumer_UnknownEventTypeIsAcked(t *testing.T) {
	c, store := newTestConsumer(t, nil)

	ev := mustEvent(t, "catalog.something.else", map[string]any{"x": 1})
	err := c.Handle(context.Background(), ev)
	require.NoError(t, err, "unknown events are logged and acknowledged, not retried")
	assert.Empty(t, store.queried)
}
