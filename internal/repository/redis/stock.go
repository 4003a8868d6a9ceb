package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "catalogsync:stock:"

// StockRegistry implements stock.Registry over Redis. Inventory consumers
// keep the keys fresh; a missing key means "unknown" so the availability
// resolution can fall through to the raw stock data.
type StockRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStockRegistry creates a Redis-backed stock registry. Entries expire
// after ttl so a stalled inventory feed degrades to the fallback sources
// instead of serving stale truth forever.
func NewStockRegistry(client *redis.Client, ttl time.Duration) *StockRegistry {
	return &StockRegistry{
		client: client,
		ttl:    ttl,
	}
}

func stockKey(itemID int64) string {
	return stockKeyPrefix + strconv.FormatInt(itemID, 10)
}

// Status returns the cached stock status for an item, or (nil, nil) when the
// item has no entry.
func (r *StockRegistry) Status(ctx context.Context, itemID int64) (*bool, error) {
	val, err := r.client.Get(ctx, stockKey(itemID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get stock status: %w", err)
	}

	inStock := val == "1"
	return &inStock, nil
}

// Put records the current stock status for an item.
func (r *StockRegistry) Put(ctx context.Context, itemID int64, inStock bool) error {
	val := "0"
	if inStock {
		val = "1"
	}
	if err := r.client.Set(ctx, stockKey(itemID), val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set stock status: %w", err)
	}
	return nil
}
