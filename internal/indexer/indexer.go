// Package indexer keeps the document index in step with catalog writes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/engine"
)

// Sync operations, used as the operation label and log attribute.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

var (
	syncFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_sync_failures_total",
			Help: "Document syncs that failed and were dropped, by operation",
		},
		[]string{"operation"},
	)

	syncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_syncs_total",
			Help: "Document syncs attempted, by operation",
		},
		[]string{"operation"},
	)
)

// Indexer mirrors product records into an engine.DocumentIndex.
//
// The On* methods are the catalog-facing hooks: they never return an error
// and never block the caller on a failure beyond the single index call. The
// Sync* methods do the same work but return the error, for callers that
// retry (the Kafka consumer).
type Indexer struct {
	index  engine.DocumentIndex
	logger *slog.Logger
}

// New creates an Indexer writing to index.
func New(index engine.DocumentIndex, logger *slog.Logger) *Indexer {
	return &Indexer{index: index, logger: logger}
}

// OnCreate indexes a newly created product.
func (i *Indexer) OnCreate(ctx context.Context, p *domain.Product) {
	i.swallow(ctx, OpCreate, p.ID, i.SyncCreate(ctx, p))
}

// OnUpdate re-indexes an updated product, creating the document if the
// index never saw it.
func (i *Indexer) OnUpdate(ctx context.Context, p *domain.Product) {
	i.swallow(ctx, OpUpdate, p.ID, i.SyncUpdate(ctx, p))
}

// OnDelete removes the product's document. A missing document is not an
// error.
func (i *Indexer) OnDelete(ctx context.Context, productID int64) {
	i.swallow(ctx, OpDelete, productID, i.SyncDelete(ctx, productID))
}

// SyncCreate builds the document for p and writes it.
func (i *Indexer) SyncCreate(ctx context.Context, p *domain.Product) error {
	syncsTotal.WithLabelValues(OpCreate).Inc()

	if err := i.index.Upsert(ctx, domain.NewProductDocument(p)); err != nil {
		return fmt.Errorf("index product %d: %w", p.ID, err)
	}
	return nil
}

// SyncUpdate overwrites every mirrored field of p's document, or creates it
// when absent.
func (i *Indexer) SyncUpdate(ctx context.Context, p *domain.Product) error {
	syncsTotal.WithLabelValues(OpUpdate).Inc()

	id := domain.DocumentID(p.ID)
	_, err := i.index.Get(ctx, id)
	switch {
	case errors.Is(err, engine.ErrDocumentNotFound):
		i.logger.InfoContext(ctx, "document missing on update, creating",
			slog.Int64("product_id", p.ID),
		)
	case err != nil:
		return fmt.Errorf("get document %s: %w", id, err)
	}

	if err := i.index.Upsert(ctx, domain.NewProductDocument(p)); err != nil {
		return fmt.Errorf("reindex product %d: %w", p.ID, err)
	}
	return nil
}

// SyncDelete removes the document for productID if it exists.
func (i *Indexer) SyncDelete(ctx context.Context, productID int64) error {
	syncsTotal.WithLabelValues(OpDelete).Inc()

	id := domain.DocumentID(productID)
	if _, err := i.index.Get(ctx, id); err != nil {
		if errors.Is(err, engine.ErrDocumentNotFound) {
			return nil
		}
		return fmt.Errorf("get document %s: %w", id, err)
	}

	err := i.index.Delete(ctx, id)
	if err != nil && !errors.Is(err, engine.ErrDocumentNotFound) {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (i *Indexer) swallow(ctx context.Context, op string, productID int64, err error) {
	if err == nil {
		return
	}
	syncFailures.WithLabelValues(op).Inc()
	i.logger.ErrorContext(ctx, "index sync failed",
		slog.String("operation", op),
		slog.Int64("product_id", productID),
		slog.String("error", err.Error()),
	)
}
