package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/productsearch/internal/domain"
	pkgkafka "github.com/utafrali/productsearch/pkg/kafka"
)

// Syncer applies product changes to the document index and reports failures
// so the Kafka consumer can retry them.
type Syncer interface {
	SyncCreate(ctx context.Context, p *domain.Product) error
	SyncUpdate(ctx context.Context, p *domain.Product) error
	SyncDelete(ctx context.Context, productID int64) error
}

// Consumer dispatches product events to the indexer.
type Consumer struct {
	syncer Syncer
	logger *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(syncer Syncer, logger *slog.Logger) *Consumer {
	return &Consumer{
		syncer: syncer,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case EventProductCreated:
		p, err := decodeProduct(event)
		if err != nil {
			return err
		}
		return c.syncer.SyncCreate(ctx, p)
	case EventProductUpdated:
		p, err := decodeProduct(event)
		if err != nil {
			return err
		}
		return c.syncer.SyncUpdate(ctx, p)
	case EventProductDeleted:
		var data ProductDeletedData
		if err := event.UnmarshalData(&data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
		return c.syncer.SyncDelete(ctx, data.ID)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func decodeProduct(event *pkgkafka.Event) (*domain.Product, error) {
	var data ProductData
	if err := event.UnmarshalData(&data); err != nil {
		return nil, fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	return data.Product(), nil
}

// GroupConfig configures the Kafka consumer built by Subscribe.
type GroupConfig struct {
	Brokers []string
	GroupID string
	// Store deduplicates redelivered events. Optional.
	Store pkgkafka.IdempotencyStore
	// DLQ receives events that failed every retry. Optional.
	DLQ pkgkafka.DeadLetterPublisher
}

// Subscribe builds the Kafka consumer of TopicProductEvents dispatching to
// c.Handle. Messages of a partition are handled one at a time, so a
// product's events are applied in publish order. The caller starts and
// closes the consumer.
func (c *Consumer) Subscribe(cfg GroupConfig) *pkgkafka.Consumer {
	var handler pkgkafka.Handler = c.Handle
	if cfg.Store != nil {
		handler = pkgkafka.IdempotentHandler(cfg.Store, handler, c.logger)
	}

	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   TopicProductEvents,
		DLQ:     cfg.DLQ,
	}, handler, c.logger)
}
