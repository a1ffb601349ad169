package elasticsearch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/engine"
	esengine "github.com/utafrali/productsearch/internal/engine/elasticsearch"
	"github.com/utafrali/productsearch/pkg/httpclient"
)

// newTestEngine skips unless ELASTICSEARCH_URL points at a live cluster.
func newTestEngine(t *testing.T) *esengine.Engine {
	t.Helper()

	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		t.Skip("ELASTICSEARCH_URL not set, skipping Elasticsearch integration tests")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	indexName := fmt.Sprintf("test_products_%d", time.Now().UnixNano())

	eng, err := esengine.New(esengine.Config{
		Addresses: []string{esURL},
		Index:     indexName,
		Transport: httpclient.New(httpclient.DefaultConfig(), httpclient.DefaultCircuitBreakerConfig("es-integration"), logger),
	}, logger)
	require.NoError(t, err)
	require.NoError(t, eng.EnsureIndex(context.Background()))

	t.Cleanup(func() {
		_ = eng.DeleteIndex(context.Background())
	})
	return eng
}

func doc(id int64, name, brand string, price string) domain.ProductDocument {
	return domain.ProductDocument{
		ID:           id,
		Name:         name,
		Description:  name + " description",
		Brand:        brand,
		CategoryName: domain.CategoryElectronics,
		MarkedPrice:  decimal.RequireFromString(price),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func fullText(text string) *domain.FullTextClause {
	return &domain.FullTextClause{Text: text, Fields: domain.FullTextFields, Operator: domain.OperatorAnd}
}

func TestES_UpsertGetDelete(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	d := doc(1, "Galaxy Phone", "samsung", "59999.99")
	require.NoError(t, eng.Upsert(ctx, d))

	got, err := eng.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.True(t, d.MarkedPrice.Equal(got.MarkedPrice))

	require.NoError(t, eng.Delete(ctx, "1"))
	_, err = eng.Get(ctx, "1")
	assert.ErrorIs(t, err, engine.ErrDocumentNotFound)
	assert.NoError(t, eng.Delete(ctx, "1"))
}

func TestES_FullTextAndFilters(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.BulkUpsert(ctx, []domain.ProductDocument{
		doc(1, "Dell Laptop Inspiron", "dell", "15000"),
		doc(2, "Dell Laptop XPS", "Dell", "45000"),
		doc(3, "HP Laptop Envy", "hp", "30000"),
		doc(4, "Dell Monitor", "dell", "25000"),
	}))

	minPrice := decimal.NewFromInt(20000)
	hits, err := eng.Query(ctx, domain.Query{
		FullText: fullText("laptop"),
		Terms:    []domain.TermFilter{{Field: domain.FieldBrand, Value: "dell"}},
		Ranges:   []domain.RangeFilter{{Field: domain.FieldMarkedPrice, Gte: &minPrice}},
		Size:     10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, hits.Total)
	assert.Equal(t, int64(2), hits.Documents[0].ID)
}

func TestES_AndOperatorRequiresAllTerms(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, eng.BulkUpsert(ctx, []domain.ProductDocument{
		doc(1, "Wireless Mouse", "logitech", "1999"),
		doc(2, "Wired Mouse", "hp", "499"),
	}))

	hits, err := eng.Query(ctx, domain.Query{FullText: fullText("wireless mouse"), Size: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, hits.Total)
}

func TestES_RecommendationSort(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	var docs []domain.ProductDocument
	for i := int64(1); i <= 7; i++ {
		docs = append(docs, doc(i, fmt.Sprintf("Item %d", i), "acme", fmt.Sprintf("%d", i*1000)))
	}
	require.NoError(t, eng.BulkUpsert(ctx, docs))

	hits, err := eng.Query(ctx, domain.Query{
		Sort: []domain.Sort{{Field: domain.FieldMarkedPrice, Order: domain.SortDesc}},
		Size: 5,
	})
	require.NoError(t, err)
	require.Len(t, hits.Documents, 5)
	assert.Equal(t, int64(7), hits.Documents[0].ID)
	assert.Equal(t, int64(3), hits.Documents[4].ID)
}

func TestES_Ping(t *testing.T) {
	eng := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, eng.Ping(ctx))
}
