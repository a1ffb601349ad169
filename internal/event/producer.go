package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/productsearch/internal/domain"
	pkgkafka "github.com/utafrali/productsearch/pkg/kafka"
	"github.com/utafrali/productsearch/pkg/logger"
)

// TopicProductEvents carries every product event, keyed by product id so all
// events of one product land on one partition in publish order.
const TopicProductEvents = "ecommerce.product.events"

// Product event types.
const (
	EventProductCreated = "ecommerce.product.created"
	EventProductUpdated = "ecommerce.product.updated"
	EventProductDeleted = "ecommerce.product.deleted"
)

// AggregateTypeProduct is the aggregate type of every product event.
const AggregateTypeProduct = "product"

// SourceCatalog identifies events published by the catalog.
const SourceCatalog = "productsearch-catalog"

// ProductData is the payload of product.created and product.updated. It is a
// full snapshot so consumers never need to read the catalog back.
type ProductData struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Slug           *string         `json:"slug,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Brand          *string         `json:"brand,omitempty"`
	CategoryID     int64           `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	AvailableStock int             `json:"available_stock"`
	MarkedPrice    decimal.Decimal `json:"marked_price"`
	DiscountPrice  decimal.Decimal `json:"discount_price"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Brand:          p.Brand,
		CategoryID:     p.CategoryID,
		CategoryName:   p.CategoryName,
		AvailableStock: p.AvailableStock,
		MarkedPrice:    p.MarkedPrice,
		DiscountPrice:  p.DiscountPrice,
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// Product converts the payload back into a product record.
func (d ProductData) Product() *domain.Product {
	return &domain.Product{
		ID:             d.ID,
		Name:           d.Name,
		Slug:           d.Slug,
		Description:    d.Description,
		Brand:          d.Brand,
		CategoryID:     d.CategoryID,
		CategoryName:   d.CategoryName,
		AvailableStock: d.AvailableStock,
		MarkedPrice:    d.MarkedPrice,
		DiscountPrice:  d.DiscountPrice,
		IsActive:       d.IsActive,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID int64 `json:"id"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes product domain events. It is the Kafka-mode index sync:
// publish failures are logged and never fail the catalog write.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// OnCreate publishes product.created.
func (p *Producer) OnCreate(ctx context.Context, product *domain.Product) {
	p.publish(ctx, EventProductCreated, product.ID, productData(product))
}

// OnUpdate publishes product.updated.
func (p *Producer) OnUpdate(ctx context.Context, product *domain.Product) {
	p.publish(ctx, EventProductUpdated, product.ID, productData(product))
}

// OnDelete publishes product.deleted.
func (p *Producer) OnDelete(ctx context.Context, productID int64) {
	p.publish(ctx, EventProductDeleted, productID, ProductDeletedData{ID: productID})
}

func (p *Producer) publish(ctx context.Context, eventType string, productID int64, data any) {
	if err := p.send(ctx, eventType, productID, data); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish product event",
			slog.String("event_type", eventType),
			slog.Int64("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Producer) send(ctx context.Context, eventType string, productID int64, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, domain.DocumentID(productID), AggregateTypeProduct, SourceCatalog, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, TopicProductEvents, evt); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
