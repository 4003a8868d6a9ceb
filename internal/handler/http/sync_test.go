package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/catalog"
	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/drift"
	"github.com/klevu/catalog-sync/internal/eligibility"
	"github.com/klevu/catalog-sync/internal/scope"
	"github.com/klevu/catalog-sync/internal/service"
	"github.com/klevu/catalog-sync/internal/tenant"
)

type memoryRowStore struct {
	mu   sync.Mutex
	rows map[int64]domain.TrackingRow
	next int64
}

func newMemoryRowStore() *memoryRowStore {
	return &memoryRowStore{rows: make(map[int64]domain.TrackingRow)}
}

func (s *memoryRowStore) FindByTargetID(_ context.Context, itemID int64) ([]domain.TrackingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TrackingRow
	for _, r := range s.rows {
		if r.TargetID == itemID || (r.TargetParentID != nil && *r.TargetParentID == itemID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memoryRowStore) FindByKey(context.Context, string, int64, *int64, domain.Subtype) (*domain.TrackingRow, error) {
	return nil, apperrors.ErrNotFound
}

func (s *memoryRowStore) List(context.Context, int64, int) ([]domain.TrackingRow, error) {
	return nil, nil
}

func (s *memoryRowStore) Create(_ context.Context, row *domain.TrackingRow) (*domain.TrackingRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	row.ID = s.next
	s.rows[row.ID] = *row
	return row, nil
}

func (s *memoryRowStore) Save(_ context.Context, row *domain.TrackingRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[row.ID]; !ok {
		return apperrors.ErrNotFound
	}
	s.rows[row.ID] = *row
	return nil
}

func (s *memoryRowStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func setupHandler(t *testing.T) (*chi.Mux, *memoryRowStore, *catalog.MemoryResolver) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := newMemoryRowStore()
	entities := catalog.NewMemoryResolver()
	stores := tenant.NewStaticStoreMap(
		domain.Scope{StoreID: 1, TenantKey: "acme"},
		domain.Scope{StoreID: 2, TenantKey: "acme"},
	)
	flags := tenant.NewStaticFlags(nil)

	registry, err := drift.NewRegistry()
	require.NoError(t, err)
	detector := drift.NewDetector(store, registry, logger)

	productChain := func() *eligibility.Chain {
		return eligibility.NewProductChain(flags, nil, scope.NewTracker(), logger)
	}
	attributeChain := func() *eligibility.Chain {
		return eligibility.NewAttributeChain(flags, scope.NewTracker(), logger)
	}
	svc := service.NewSyncService(store, stores, entities, detector, productChain, attributeChain, logger)

	h := NewSyncHandler(svc, store, logger)
	r := chi.NewRouter()
	r.Post("/drift/evaluate", h.EvaluateDrift)
	r.Get("/items/{id}/indexability", h.Indexability)
	r.Post("/audit/run", h.RunAudit)
	r.Get("/rows", h.ListRows)
	r.Post("/rows", h.CreateRow)
	r.Delete("/rows/{id}", h.DeleteRow)
	return r, store, entities
}

func TestEvaluateDrift(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/drift/evaluate", strings.NewReader(`{"item_ids":[100,101]}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["evaluated_items"])
}

func TestEvaluateDrift_EmptyItemIDs(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/drift/evaluate", strings.NewReader(`{"item_ids":[]}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluateDrift_MalformedBody(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/drift/evaluate", strings.NewReader(`{item_ids`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndexability(t *testing.T) {
	router, _, entities := setupHandler(t)
	entities.PutProduct(&domain.Product{
		ID:        100,
		Status:    domain.ProductStatusEnabled,
		StockData: &domain.StockData{InStock: true},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/100/indexability?tenant_key=acme", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		ItemID int64  `json:"item_id"`
		Scopes []any  `json:"scopes"`
		Sub    string `json:"subtype"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(100), body.ItemID)
	assert.Len(t, body.Scopes, 2)
	assert.Equal(t, "simple", body.Sub)
}

func TestIndexability_MissingTenantKey(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/100/indexability", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIndexability_UnknownProduct(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/items/100/indexability?tenant_key=acme", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunAudit(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/audit/run", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report service.AuditReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Zero(t, report.RowsSeen)
}

func TestCreateRowAndList(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rows",
		strings.NewReader(`{"tenant_key":"acme","target_id":100,"subtype":"configurable_variant","target_parent_id":200}`))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.TrackingRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.SubtypeConfigurableVariant, created.Subtype)
	require.NotNil(t, created.TargetParentID)
	assert.Equal(t, int64(200), *created.TargetParentID)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/rows?target_id=100", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Rows []domain.TrackingRow `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Rows, 1)
}

func TestCreateRow_MissingTenantKey(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/rows", strings.NewReader(`{"target_id":100}`))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteRow(t *testing.T) {
	router, store, _ := setupHandler(t)
	_, err := store.Create(context.Background(), &domain.TrackingRow{
		TenantKey: "acme", TargetID: 100,
		EntityType: domain.EntityTypeProduct,
		Subtype:    domain.SubtypeSimple,
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/rows/1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/rows/1", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRow_InvalidID(t *testing.T) {
	router, _, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/rows/abc", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
