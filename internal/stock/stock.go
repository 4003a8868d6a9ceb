// Package stock resolves the current stock availability of a catalog item.
package stock

import (
	"context"
	"fmt"

	"github.com/klevu/catalog-sync/internal/domain"
)

// Registry is the live stock lookup, the fallback between the item-carried
// value and the raw stock data. Implementations return (nil, nil) when the
// item has no registry entry, so the resolution can fall through.
type Registry interface {
	Status(ctx context.Context, itemID int64) (*bool, error)
}

// Availability computes the current stock truth for an item. Sources are
// consulted in priority order, first non-nil wins:
//
//  1. the extension value carried on the product itself,
//  2. the live stock registry,
//  3. the raw stock data loaded with the product.
//
// An item with no source at all is treated as out of stock.
func Availability(ctx context.Context, p *domain.Product, reg Registry) (bool, error) {
	if p.IsSaleable != nil {
		return *p.IsSaleable, nil
	}

	if reg != nil {
		st, err := reg.Status(ctx, p.ID)
		if err != nil {
			return false, fmt.Errorf("stock registry lookup for item %d: %w", p.ID, err)
		}
		if st != nil {
			return *st, nil
		}
	}

	if p.StockData != nil {
		return p.StockData.InStock, nil
	}

	return false, nil
}
