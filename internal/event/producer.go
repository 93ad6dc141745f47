// Package event carries catalog index updates over Kafka.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pkgkafka "github.com/najeemsuhail/ecommerce-store-sub000/pkg/kafka"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/logger"
)

const (
	source        = "catalog"
	aggregateType = "product"
)

// TopicProductUpserted carries the id of every product whose row was written
// by a reconciliation.
var TopicProductUpserted = pkgkafka.Topic("catalog", "product.upserted")

// ProductUpsertedData is the payload of a product.upserted event.
type ProductUpsertedData struct {
	ID string `json:"id"`
}

// Publisher is the part of pkg/kafka.Producer the event producer needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes product.upserted events. It satisfies
// service.IndexSyncer: publishing happens in the background and failures are
// only logged.
type Producer struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewProducer creates a producer that gives each publish up to timeout.
func NewProducer(publisher Publisher, timeout time.Duration, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, timeout: timeout, logger: logger}
}

// Sync publishes a product.upserted event for productID without blocking.
func (p *Producer) Sync(ctx context.Context, productID string) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		if err := p.PublishProductUpserted(ctx, productID); err != nil {
			p.logger.WarnContext(ctx, "failed to publish product.upserted event",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// PublishProductUpserted publishes one event synchronously.
func (p *Producer) PublishProductUpserted(ctx context.Context, productID string) error {
	evt, err := pkgkafka.NewEvent(TopicProductUpserted, productID, aggregateType, source, ProductUpsertedData{ID: productID})
	if err != nil {
		return err
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)
	return p.publisher.Publish(ctx, TopicProductUpserted, evt)
}

// Wait blocks until every pending publish has finished.
func (p *Producer) Wait() {
	p.wg.Wait()
}
