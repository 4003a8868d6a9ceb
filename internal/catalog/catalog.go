// Package catalog defines how the sync core resolves catalog entities by id.
package catalog

import (
	"context"
	"sync"

	apperrors "github.com/klevu/catalog-sync/pkg/errors"

	"github.com/klevu/catalog-sync/internal/domain"
)

// Resolver loads catalog entities for a given scope. Implementations are
// expected to return apperrors.ErrNotFound (possibly wrapped) when the entity
// does not exist.
type Resolver interface {
	Product(ctx context.Context, id int64, sc domain.Scope) (*domain.Product, error)
	Attribute(ctx context.Context, id int64) (*domain.Attribute, error)
}

// MemoryResolver is an in-memory Resolver for tests and local development.
// Products can be registered globally or overridden per store.
type MemoryResolver struct {
	mu         sync.RWMutex
	products   map[int64]*domain.Product
	perStore   map[int64]map[int64]*domain.Product
	attributes map[int64]*domain.Attribute
}

// NewMemoryResolver creates an empty resolver.
func NewMemoryResolver() *MemoryResolver {
	return &MemoryResolver{
		products:   make(map[int64]*domain.Product),
		perStore:   make(map[int64]map[int64]*domain.Product),
		attributes: make(map[int64]*domain.Attribute),
	}
}

// PutProduct registers a product visible in every store.
func (r *MemoryResolver) PutProduct(p *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
}

// PutProductForStore registers a store-specific view of a product, taking
// precedence over the global registration for that store.
func (r *MemoryResolver) PutProductForStore(storeID int64, p *domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.perStore[storeID]
	if !ok {
		byID = make(map[int64]*domain.Product)
		r.perStore[storeID] = byID
	}
	byID[p.ID] = p
}

// PutAttribute registers an attribute.
func (r *MemoryResolver) PutAttribute(a *domain.Attribute) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attributes[a.ID] = a
}

// Product resolves a product for the given scope.
func (r *MemoryResolver) Product(_ context.Context, id int64, sc domain.Scope) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if byID, ok := r.perStore[sc.StoreID]; ok {
		if p, ok := byID[id]; ok {
			return p, nil
		}
	}
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, apperrors.ErrNotFound
}

// Attribute resolves an attribute by id.
func (r *MemoryResolver) Attribute(_ context.Context, id int64) (*domain.Attribute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.attributes[id]; ok {
		return a, nil
	}
	return nil, apperrors.ErrNotFound
}
