// Package tenant resolves which store scopes and condition toggles belong to
// a tenant key.
package tenant

import (
	"context"
	"sync"

	"github.com/klevu/catalog-sync/internal/domain"
)

// StoreMapProvider resolves the set of store scopes configured with a tenant
// key. An unknown key resolves to an empty set, not an error.
type StoreMapProvider interface {
	ScopesForTenant(ctx context.Context, tenantKey string) ([]domain.Scope, error)
}

// Flags is the per-tenant enablement of eligibility conditions, keyed by
// condition ID. A condition absent from the map is enabled.
type Flags map[string]bool

// Enabled reports whether the condition is enabled for the tenant.
func (f Flags) Enabled(conditionID string) bool {
	v, ok := f[conditionID]
	return !ok || v
}

// FlagsProvider resolves the condition toggles for a tenant key.
type FlagsProvider interface {
	ConditionFlags(ctx context.Context, tenantKey string) (Flags, error)
}

// StaticStoreMap is an in-memory StoreMapProvider, used in tests and for
// config-driven deployments without a scope table.
type StaticStoreMap struct {
	scopes []domain.Scope
}

// NewStaticStoreMap creates a provider over a fixed scope list.
func NewStaticStoreMap(scopes ...domain.Scope) *StaticStoreMap {
	return &StaticStoreMap{scopes: scopes}
}

// ScopesForTenant returns every configured scope whose tenant key matches.
func (m *StaticStoreMap) ScopesForTenant(_ context.Context, tenantKey string) ([]domain.Scope, error) {
	var out []domain.Scope
	for _, sc := range m.scopes {
		if sc.TenantKey == tenantKey {
			out = append(out, sc)
		}
	}
	return out, nil
}

// StaticFlags is an in-memory FlagsProvider.
type StaticFlags struct {
	byTenant map[string]Flags
}

// NewStaticFlags creates a provider over fixed per-tenant flags. Tenants
// without an entry get all conditions enabled.
func NewStaticFlags(byTenant map[string]Flags) *StaticFlags {
	return &StaticFlags{byTenant: byTenant}
}

// ConditionFlags returns the tenant's toggles.
func (f *StaticFlags) ConditionFlags(_ context.Context, tenantKey string) (Flags, error) {
	return f.byTenant[tenantKey], nil
}

// CachedStoreMap memoizes an inner StoreMapProvider per tenant key. It is
// reset at the start of each batch run so one batch never re-resolves the
// same tenant's scopes thousands of times, while scope changes still take
// effect between batches.
type CachedStoreMap struct {
	inner StoreMapProvider

	mu    sync.Mutex
	cache map[string][]domain.Scope
}

// NewCachedStoreMap wraps a provider with a per-batch cache.
func NewCachedStoreMap(inner StoreMapProvider) *CachedStoreMap {
	return &CachedStoreMap{
		inner: inner,
		cache: make(map[string][]domain.Scope),
	}
}

// ScopesForTenant returns the cached scope set, resolving through the inner
// provider on first use per tenant.
func (c *CachedStoreMap) ScopesForTenant(ctx context.Context, tenantKey string) ([]domain.Scope, error) {
	c.mu.Lock()
	if scopes, ok := c.cache[tenantKey]; ok {
		c.mu.Unlock()
		return scopes, nil
	}
	c.mu.Unlock()

	scopes, err := c.inner.ScopesForTenant(ctx, tenantKey)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[tenantKey] = scopes
	c.mu.Unlock()
	return scopes, nil
}

// Reset drops all memoized entries. Called at the start of each batch run.
func (c *CachedStoreMap) Reset() {
	c.mu.Lock()
	c.cache = make(map[string][]domain.Scope)
	c.mu.Unlock()
}
