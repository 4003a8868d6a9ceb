package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/klevu/catalog-sync/pkg/kafka"

	"github.com/klevu/catalog-sync/internal/service"
)

// Kafka topics this service consumes. Each one is an external trigger
// supplying affected item ids.
const (
	TopicProductUpdated   = "catalog.product.updated"
	TopicStockChanged     = "inventory.stock.changed"
	TopicAttributeUpdated = "catalog.attribute.updated"
)

// ProductUpdatedData is the payload of a product.updated event.
type ProductUpdatedData struct {
	ItemIDs []int64 `json:"item_ids"`
}

// StockChangedData is the payload of a stock.changed event.
type StockChangedData struct {
	ItemID  int64 `json:"item_id"`
	InStock *bool `json:"in_stock,omitempty"`
}

// AttributeUpdatedData is the payload of an attribute.updated event. The
// producer includes the item ids whose extracted documents embed the
// attribute.
type AttributeUpdatedData struct {
	AttributeID     int64   `json:"attribute_id"`
	AffectedItemIDs []int64 `json:"affected_item_ids"`
}

// StockWriter refreshes the stock registry from inventory events, so the
// registry fallback stays warm without a lookup service round trip.
type StockWriter interface {
	Put(ctx context.Context, itemID int64, inStock bool) error
}

// Consumer turns catalog and inventory events into drift evaluations.
type Consumer struct {
	sync   *service.SyncService
	stocks StockWriter
	logger *slog.Logger
}

// NewConsumer creates the event consumer. stocks may be nil when no registry
// write-through is configured.
func NewConsumer(sync *service.SyncService, stocks StockWriter, logger *slog.Logger) *Consumer {
	return &Consumer{
		sync:   sync,
		stocks: stocks,
		logger: logger,
	}
}

// Handle dispatches one event by type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductUpdated:
		return c.handleProductUpdated(ctx, event)
	case TopicStockChanged:
		return c.handleStockChanged(ctx, event)
	case TopicAttributeUpdated:
		return c.handleAttributeUpdated(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleProductUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductUpdatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.updated data: %w", err)
	}
	if len(data.ItemIDs) == 0 {
		return nil
	}
	if err := c.sync.OnItemsChanged(ctx, data.ItemIDs); err != nil {
		return fmt.Errorf("evaluate drift for product.updated: %w", err)
	}
	return nil
}

func (c *Consumer) handleStockChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data StockChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal stock.changed data: %w", err)
	}

	if c.stocks != nil && data.InStock != nil {
		if err := c.stocks.Put(ctx, data.ItemID, *data.InStock); err != nil {
			// The registry is a cache; drift evaluation still resolves
			// availability through the fallback chain.
			c.logger.WarnContext(ctx, "stock registry write-through failed",
				slog.Int64("item_id", data.ItemID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := c.sync.OnItemsChanged(ctx, []int64{data.ItemID}); err != nil {
		return fmt.Errorf("evaluate drift for stock.changed: %w", err)
	}
	return nil
}

func (c *Consumer) handleAttributeUpdated(ctx context.Context, event *pkgkafka.Event) error {
	var data AttributeUpdatedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal attribute.updated data: %w", err)
	}
	if len(data.AffectedItemIDs) == 0 {
		return nil
	}
	if err := c.sync.OnItemsChanged(ctx, data.AffectedItemIDs); err != nil {
		return fmt.Errorf("evaluate drift for attribute.updated: %w", err)
	}
	return nil
}
