package postgres

import (
	"context"
	"fmt"

	"github.com/klevu/catalog-sync/pkg/database"

	"github.com/klevu/catalog-sync/internal/domain"
	"github.com/klevu/catalog-sync/internal/tenant"
)

// ScopeRepository resolves store scopes and per-tenant condition toggles
// from PostgreSQL. It implements both tenant.StoreMapProvider and
// tenant.FlagsProvider.
type ScopeRepository struct {
	pool database.DBTX
}

// NewScopeRepository creates a PostgreSQL-backed scope repository.
func NewScopeRepository(pool database.DBTX) *ScopeRepository {
	return &ScopeRepository{pool: pool}
}

// ScopesForTenant returns every store scope configured with the tenant key,
// ordered by ascending store id. An unknown key yields an empty set.
func (r *ScopeRepository) ScopesForTenant(ctx context.Context, tenantKey string) ([]domain.Scope, error) {
	query := `
		SELECT store_id, website_id, tenant_key
		FROM store_scopes
		WHERE tenant_key = $1
		ORDER BY store_id`

	rows, err := r.pool.Query(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("find scopes for tenant: %w", err)
	}
	defer rows.Close()

	var out []domain.Scope
	for rows.Next() {
		var sc domain.Scope
		if err := rows.Scan(&sc.StoreID, &sc.WebsiteID, &sc.TenantKey); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scopes: %w", err)
	}
	return out, nil
}

// ConditionFlags returns the tenant's eligibility condition toggles.
// Conditions without a stored row default to enabled.
func (r *ScopeRepository) ConditionFlags(ctx context.Context, tenantKey string) (tenant.Flags, error) {
	query := `
		SELECT condition_id, enabled
		FROM tenant_condition_flags
		WHERE tenant_key = $1`

	rows, err := r.pool.Query(ctx, query, tenantKey)
	if err != nil {
		return nil, fmt.Errorf("find condition flags for tenant: %w", err)
	}
	defer rows.Close()

	flags := make(tenant.Flags)
	for rows.Next() {
		var (
			conditionID string
			enabled     bool
		)
		if err := rows.Scan(&conditionID, &enabled); err != nil {
			return nil, fmt.Errorf("scan condition flag: %w", err)
		}
		flags[conditionID] = enabled
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate condition flags: %w", err)
	}
	return flags, nil
}
