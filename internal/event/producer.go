package event

import (
	"context"
	"fmt"
	"strconv"

	pkgkafka "github.com/klevu/catalog-sync/pkg/kafka"

	"github.com/klevu/catalog-sync/internal/domain"
)

// Topic published when a tracking row is flagged for re-extraction.
const TopicRowRequiresUpdate = "catalog-sync.row.requires_update"

// Aggregate and source identifiers for published events.
const (
	AggregateTypeTrackingRow = "tracking_row"
	SourceCatalogSync        = "catalog-sync"
)

// RowRequiresUpdateData is the payload of a row.requires_update event.
type RowRequiresUpdateData struct {
	TenantKey      string   `json:"tenant_key"`
	TargetID       int64    `json:"target_id"`
	TargetParentID *int64   `json:"target_parent_id,omitempty"`
	Subtype        string   `json:"subtype"`
	Criteria       []string `json:"criteria"`
}

// Producer publishes tracking-row events. It satisfies drift.Notifier.
type Producer struct {
	producer *pkgkafka.Producer
}

// NewProducer wraps a Kafka producer for tracking-row events.
func NewProducer(producer *pkgkafka.Producer) *Producer {
	return &Producer{producer: producer}
}

// RowFlagged publishes that the row was flagged dirty by the given criteria.
func (p *Producer) RowFlagged(ctx context.Context, row *domain.TrackingRow, criteria []string) error {
	data := RowRequiresUpdateData{
		TenantKey:      row.TenantKey,
		TargetID:       row.TargetID,
		TargetParentID: row.TargetParentID,
		Subtype:        string(row.Subtype),
		Criteria:       criteria,
	}

	event, err := pkgkafka.NewEvent(
		TopicRowRequiresUpdate,
		strconv.FormatInt(row.ID, 10),
		AggregateTypeTrackingRow,
		SourceCatalogSync,
		data,
	)
	if err != nil {
		return fmt.Errorf("build row.requires_update event: %w", err)
	}

	return p.producer.Publish(ctx, TopicRowRequiresUpdate, event)
}
