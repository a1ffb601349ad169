package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/engine"
	"github.com/utafrali/productsearch/internal/repository"
)

// DefaultReindexBatchSize is used when no batch size is configured.
const DefaultReindexBatchSize = 500

// ErrRecreateUnsupported is returned when a recreate is requested from an
// index that cannot be rebuilt.
var ErrRecreateUnsupported = errors.New("index does not support recreate")

var reindexedDocuments = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reindex_documents_total",
	Help: "Documents written by bulk reindex runs",
})

// ReindexResult summarizes a reindex run.
type ReindexResult struct {
	Indexed   int           `json:"indexed"`
	Batches   int           `json:"batches"`
	Recreated bool          `json:"recreated"`
	Duration  time.Duration `json:"duration_ns"`
}

// Reindexer copies the whole catalog into the document index.
type Reindexer struct {
	products  repository.ProductRepository
	index     engine.DocumentIndex
	batchSize int
	logger    *slog.Logger
}

// NewReindexer creates a Reindexer. A non-positive batchSize falls back to
// DefaultReindexBatchSize.
func NewReindexer(products repository.ProductRepository, index engine.DocumentIndex, batchSize int, logger *slog.Logger) *Reindexer {
	if batchSize <= 0 {
		batchSize = DefaultReindexBatchSize
	}
	return &Reindexer{
		products:  products,
		index:     index,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Reindex streams products by ascending ID and bulk-upserts each batch. With
// recreate the index is dropped and rebuilt first, which also removes
// documents whose products no longer exist.
func (r *Reindexer) Reindex(ctx context.Context, recreate bool) (*ReindexResult, error) {
	start := time.Now()
	result := &ReindexResult{}

	if recreate {
		manager, ok := r.index.(engine.IndexManager)
		if !ok {
			return nil, ErrRecreateUnsupported
		}
		if err := manager.Recreate(ctx); err != nil {
			return nil, fmt.Errorf("recreate index: %w", err)
		}
		result.Recreated = true
	}

	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := r.products.ListAfter(ctx, afterID, r.batchSize)
		if err != nil {
			return result, fmt.Errorf("load products after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		docs := make([]domain.ProductDocument, 0, len(batch))
		for i := range batch {
			docs = append(docs, domain.NewProductDocument(&batch[i]))
		}
		if err := r.index.BulkUpsert(ctx, docs); err != nil {
			return result, fmt.Errorf("bulk index batch after %d: %w", afterID, err)
		}

		result.Indexed += len(docs)
		result.Batches++
		reindexedDocuments.Add(float64(len(docs)))
		afterID = batch[len(batch)-1].ID

		r.logger.DebugContext(ctx, "reindexed batch",
			slog.Int("size", len(docs)),
			slog.Int64("last_product_id", afterID),
		)

		if len(batch) < r.batchSize {
			break
		}
	}

	result.Duration = time.Since(start)
	r.logger.InfoContext(ctx, "reindex completed",
		slog.Int("indexed", result.Indexed),
		slog.Int("batches", result.Batches),
		slog.Bool("recreated", result.Recreated),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}
