package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/najeemsuhail/ecommerce-store-sub000/pkg/kafka"
)

// ProductIndexer brings the index entry of one product up to date.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, productID string) error
}

// Consumer handles product events by re-indexing the product from storage.
// Events carry only the id, so replays and reordering converge on the stored
// state.
type Consumer struct {
	indexer ProductIndexer
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(indexer ProductIndexer, logger *slog.Logger) *Consumer {
	return &Consumer{indexer: indexer, logger: logger}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductUpserted:
		return c.handleProductUpserted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleProductUpserted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductUpsertedData
	if err := event.DecodeData(&data); err != nil {
		return fmt.Errorf("unmarshal product.upserted data: %w", err)
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}
	if data.ID == "" {
		return fmt.Errorf("product.upserted event %s carries no product id", event.EventID)
	}

	if err := c.indexer.IndexProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("index product from upserted event: %w", err)
	}

	c.logger.DebugContext(ctx, "indexed product from upserted event",
		slog.String("product_id", data.ID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// Handler returns Handle wrapped so that an event id is processed at most
// once per store retention.
func (c *Consumer) Handler(store pkgkafka.IdempotencyStore) pkgkafka.Handler {
	return pkgkafka.IdempotentHandler(store, c.Handle, c.logger)
}
