package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/repository"
	"github.com/klevu/catalog-sync/internal/service"
)

// SyncHandler exposes the operational API: drift triggers, eligibility
// queries, tracking row lifecycle and the audit pass.
type SyncHandler struct {
	sync   *service.SyncService
	rows   repository.TrackingRowStore
	logger *slog.Logger
}

// NewSyncHandler creates the handler.
func NewSyncHandler(sync *service.SyncService, rows repository.TrackingRowStore, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		sync:   sync,
		rows:   rows,
		logger: logger,
	}
}

type evaluateDriftRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

// EvaluateDrift triggers drift evaluation for the given item ids.
func (h *SyncHandler) EvaluateDrift(w http.ResponseWriter, r *http.Request) {
	var req evaluateDriftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.InvalidInput("malformed request body"))
		return
	}
	if len(req.ItemIDs) == 0 {
		h.writeError(w, r, apperrors.InvalidInput("item_ids is required"))
		return
	}

	if err := h.sync.OnItemsChanged(r.Context(), req.ItemIDs); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{
		"evaluated_items": len(req.ItemIDs),
	})
}

// Indexability evaluates the current eligibility of one item across every
// scope of a tenant.
func (h *SyncHandler) Indexability(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, apperrors.InvalidInput("invalid item id"))
		return
	}

	tenantKey := r.URL.Query().Get("tenant_key")
	if tenantKey == "" {
		h.writeError(w, r, apperrors.InvalidInput("tenant_key is required"))
		return
	}

	subtype := domain.Subtype(r.URL.Query().Get("subtype"))
	if subtype == "" {
		subtype = domain.SubtypeSimple
	}

	decisions, err := h.sync.EvaluateItem(r.Context(), tenantKey, itemID, subtype)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"item_id":    itemID,
		"tenant_key": tenantKey,
		"subtype":    subtype,
		"scopes":     decisions,
	})
}

// RunAudit runs a full audit pass and returns its report.
func (h *SyncHandler) RunAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.sync.RunAudit(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// ListRows returns every tracking row referencing a target item.
func (h *SyncHandler) ListRows(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.ParseInt(r.URL.Query().Get("target_id"), 10, 64)
	if err != nil {
		h.writeError(w, r, apperrors.InvalidInput("target_id is required"))
		return
	}

	rows, err := h.rows.FindByTargetID(r.Context(), targetID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.TrackingRow{}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

type createRowRequest struct {
	TenantKey      string `json:"tenant_key"`
	TargetID       int64  `json:"target_id"`
	TargetParentID *int64 `json:"target_parent_id"`
	EntityType     string `json:"entity_type"`
	Subtype        string `json:"subtype"`
}

// CreateRow registers a new sync candidate.
func (h *SyncHandler) CreateRow(w http.ResponseWriter, r *http.Request) {
	var req createRowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, apperrors.InvalidInput("malformed request body"))
		return
	}
	if req.TenantKey == "" {
		h.writeError(w, r, apperrors.InvalidInput("tenant_key is required"))
		return
	}
	if req.TargetID == 0 {
		h.writeError(w, r, apperrors.InvalidInput("target_id is required"))
		return
	}

	entityType := domain.EntityType(req.EntityType)
	if entityType == "" {
		entityType = domain.EntityTypeProduct
	}
	subtype := domain.Subtype(req.Subtype)
	if subtype == "" {
		subtype = domain.SubtypeSimple
	}

	row := &domain.TrackingRow{
		TenantKey:      req.TenantKey,
		TargetID:       req.TargetID,
		TargetParentID: req.TargetParentID,
		EntityType:     entityType,
		Subtype:        subtype,
		NextAction:     domain.ActionNone,
		LastAction:     domain.ActionNone,
		Snapshot:       make(domain.Snapshot),
	}

	created, err := h.rows.Create(r.Context(), row)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// DeleteRow removes a tracking row permanently.
func (h *SyncHandler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, r, apperrors.InvalidInput("invalid row id"))
		return
	}

	if err := h.rows.Delete(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.writeError(w, r, apperrors.NotFound("tracking row", strconv.FormatInt(id, 10)))
			return
		}
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SyncHandler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *SyncHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(appErr)
}
