package engine

import (
	"context"
	"errors"

	"github.com/utafrali/productsearch/internal/domain"
)

// ErrDocumentNotFound is returned by Get when no document has the id.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentIndex is the index backend the indexer and planner talk to.
// Implementations may use Elasticsearch, in-memory storage, or other backends.
type DocumentIndex interface {
	// Upsert inserts or fully replaces the document with doc's id. The
	// document is searchable once Upsert returns.
	Upsert(ctx context.Context, doc domain.ProductDocument) error

	// BulkUpsert upserts many documents in one round trip.
	BulkUpsert(ctx context.Context, docs []domain.ProductDocument) error

	// Get returns the document or ErrDocumentNotFound.
	Get(ctx context.Context, id string) (*domain.ProductDocument, error)

	// Delete removes the document. A missing document is not an error.
	Delete(ctx context.Context, id string) error

	// Query runs a structured query and returns one page of ranked hits.
	Query(ctx context.Context, q domain.Query) (*domain.Hits, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
}

// IndexManager is implemented by backends whose index can be rebuilt.
type IndexManager interface {
	// Recreate drops the index and creates it again with the current mapping.
	Recreate(ctx context.Context) error
}
