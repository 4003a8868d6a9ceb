package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klevu/catalog-sync/pkg/database"
	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupRepo(t *testing.T) (*TrackingRowRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewTrackingRowRepository(mock)
	return repo, mock
}

var trackingColumns = []string{
	"id", "tenant_key", "target_id", "target_parent_id", "entity_type", "subtype",
	"is_indexable", "next_action", "last_action", "last_action_at",
	"requires_update", "snapshot", "updated_at",
}

func int64Ptr(v int64) *int64 { return &v }

func sampleRow() domain.TrackingRow {
	return domain.TrackingRow{
		ID:             1,
		TenantKey:      "acme",
		TargetID:       100,
		TargetParentID: nil,
		EntityType:     domain.EntityTypeProduct,
		Subtype:        domain.SubtypeSimple,
		IsIndexable:    true,
		NextAction:     domain.ActionNone,
		LastAction:     domain.ActionAdd,
		LastActionAt:   nil,
		RequiresUpdate: false,
		Snapshot:       domain.Snapshot{"stock_status": true},
		UpdatedAt:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func addRow(rows *pgxmock.Rows, r domain.TrackingRow) *pgxmock.Rows {
	return rows.AddRow(r.ID, r.TenantKey, r.TargetID, r.TargetParentID,
		r.EntityType, r.Subtype, r.IsIndexable, r.NextAction, r.LastAction,
		r.LastActionAt, r.RequiresUpdate, r.Snapshot, r.UpdatedAt)
}

// ---------------------------------------------------------------------------
// FindByTargetID
// ---------------------------------------------------------------------------

func TestTrackingRowRepository_FindByTargetID_AllRoles(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	standalone := sampleRow()
	variant := sampleRow()
	variant.ID = 2
	variant.TargetParentID = int64Ptr(200)
	variant.Subtype = domain.SubtypeConfigurableVariant

	mock.ExpectQuery("SELECT .+ FROM tracking_rows").
		WithArgs(int64(100)).
		WillReturnRows(addRow(addRow(pgxmock.NewRows(trackingColumns), standalone), variant))

	rows, err := repo.FindByTargetID(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, standalone.Key(), rows[0].Key())
	assert.Equal(t, variant.Key(), rows[1].Key())
	assert.Equal(t, int64(200), *rows[1].TargetParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRowRepository_FindByTargetID_NoRows(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM tracking_rows").
		WithArgs(int64(999)).
		WillReturnRows(pgxmock.NewRows(trackingColumns))

	rows, err := repo.FindByTargetID(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// FindByKey
// ---------------------------------------------------------------------------

func TestTrackingRowRepository_FindByKey_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	mock.ExpectQuery("SELECT .+ FROM tracking_rows").
		WithArgs(r.TenantKey, r.TargetID, r.TargetParentID, r.Subtype).
		WillReturnRows(addRow(pgxmock.NewRows(trackingColumns), r))

	result, err := repo.FindByKey(context.Background(), r.TenantKey, r.TargetID, r.TargetParentID, r.Subtype)
	require.NoError(t, err)
	assert.Equal(t, r.Key(), result.Key())
	assert.Equal(t, r.Snapshot, result.Snapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRowRepository_FindByKey_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM tracking_rows").
		WithArgs("acme", int64(100), (*int64)(nil), domain.SubtypeSimple).
		WillReturnError(pgx.ErrNoRows)

	result, err := repo.FindByKey(context.Background(), "acme", 100, nil, domain.SubtypeSimple)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestTrackingRowRepository_List_KeysetPage(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	r.ID = 11
	mock.ExpectQuery("SELECT .+ FROM tracking_rows WHERE id >").
		WithArgs(int64(10), 5).
		WillReturnRows(addRow(pgxmock.NewRows(trackingColumns), r))

	rows, err := repo.List(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(11), rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestTrackingRowRepository_Create_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	mock.ExpectQuery("INSERT INTO tracking_rows").
		WithArgs(r.TenantKey, r.TargetID, r.TargetParentID, r.EntityType,
			r.Subtype, r.IsIndexable, r.NextAction, r.LastAction, r.LastActionAt,
			r.RequiresUpdate, r.Snapshot, pgxmock.AnyArg()).
		WillReturnRows(addRow(pgxmock.NewRows(trackingColumns), r))

	created, err := repo.Create(context.Background(), &r)
	require.NoError(t, err)
	assert.Equal(t, r.ID, created.ID)
	assert.Equal(t, r.Key(), created.Key())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRowRepository_Create_NilSnapshotInitialized(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	r.Snapshot = nil
	mock.ExpectQuery("INSERT INTO tracking_rows").
		WithArgs(r.TenantKey, r.TargetID, r.TargetParentID, r.EntityType,
			r.Subtype, r.IsIndexable, r.NextAction, r.LastAction, r.LastActionAt,
			r.RequiresUpdate, domain.Snapshot{}, pgxmock.AnyArg()).
		WillReturnRows(addRow(pgxmock.NewRows(trackingColumns), sampleRow()))

	created, err := repo.Create(context.Background(), &r)
	require.NoError(t, err)
	assert.NotNil(t, created.Snapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

func TestTrackingRowRepository_Save_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	r.RequiresUpdate = true
	r.Snapshot = domain.Snapshot{"stock_status": false}
	mock.ExpectExec("UPDATE tracking_rows SET").
		WithArgs(r.ID, r.IsIndexable, r.NextAction, r.LastAction, r.LastActionAt,
			r.RequiresUpdate, r.Snapshot, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Save(context.Background(), &r)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRowRepository_Save_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	mock.ExpectExec("UPDATE tracking_rows SET").
		WithArgs(r.ID, r.IsIndexable, r.NextAction, r.LastAction, r.LastActionAt,
			r.RequiresUpdate, r.Snapshot, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Save(context.Background(), &r)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRowRepository_Save_QueryError(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	r := sampleRow()
	mock.ExpectExec("UPDATE tracking_rows SET").
		WithArgs(r.ID, r.IsIndexable, r.NextAction, r.LastAction, r.LastActionAt,
			r.RequiresUpdate, r.Snapshot, pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), &r)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestTrackingRowRepository_Delete_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM tracking_rows").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackingRowRepository_Delete_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM tracking_rows").
		WithArgs(int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
