package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/engine"
)

// Config configures the Elasticsearch engine.
type Config struct {
	Addresses []string
	Index     string

	// Transport carries every request. Retries are expected to live here,
	// so the client's own retry loop is disabled.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed implementation of engine.DocumentIndex.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var (
	_ engine.DocumentIndex = (*Engine)(nil)
	_ engine.IndexManager  = (*Engine)(nil)
)

type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string                 `json:"_id"`
			Source domain.ProductDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esGetResponse struct {
	Found  bool                   `json:"found"`
	Source domain.ProductDocument `json:"_source"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// New creates an engine. It does not contact the cluster; call EnsureIndex
// before serving traffic.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	indexName := cfg.Index
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Transport:    cfg.Transport,
		DisableRetry: cfg.Transport != nil,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{client: client, indexName: indexName, logger: logger}, nil
}

// IndexName returns the index the engine reads and writes.
func (e *Engine) IndexName() string {
	return e.indexName
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("ping", res)
	}
	return nil
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch check index: %w", err)
	}
	_ = res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		e.logger.InfoContext(ctx, "elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	case http.StatusNotFound:
		return e.createIndex(ctx)
	default:
		return fmt.Errorf("elasticsearch check index: unexpected status %s", res.Status())
	}
}

func (e *Engine) createIndex(ctx context.Context) error {
	res, err := e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// DeleteIndex removes the whole index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete([]string{e.indexName}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

// Recreate drops the index and creates it again with the current mapping.
func (e *Engine) Recreate(ctx context.Context) error {
	if err := e.DeleteIndex(ctx); err != nil {
		return err
	}
	return e.createIndex(ctx)
}

// Upsert indexes doc under its product id with refresh=true so it is
// searchable as soon as the call returns.
func (e *Engine) Upsert(ctx context.Context, doc domain.ProductDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.DocumentID()),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("upsert", res)
	}

	e.logger.DebugContext(ctx, "indexed product", slog.Int64("product_id", doc.ID))
	return nil
}

// Get fetches a document by id.
func (e *Engine) Get(ctx context.Context, id string) (*domain.ProductDocument, error) {
	res, err := e.client.Get(e.indexName, id, e.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, engine.ErrDocumentNotFound
	}
	if res.IsError() {
		return nil, responseError("get", res)
	}

	var got esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		return nil, fmt.Errorf("elasticsearch get: decode response: %w", err)
	}
	if !got.Found {
		return nil, engine.ErrDocumentNotFound
	}
	return &got.Source, nil
}

// Delete removes a document by id. A 404 is ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}

	e.logger.DebugContext(ctx, "deleted product", slog.String("id", id))
	return nil
}

// Query runs q against the index.
func (e *Engine) Query(ctx context.Context, q domain.Query) (*domain.Hits, error) {
	data, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	docs := make([]domain.ProductDocument, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	e.logger.DebugContext(ctx, "search executed",
		slog.Int("total", esResp.Hits.Total.Value),
		slog.Int("took_ms", esResp.Took),
	)

	return &domain.Hits{Total: esResp.Hits.Total.Value, Documents: docs}, nil
}

// BulkUpsert indexes docs with the bulk NDJSON API.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.ProductDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": e.indexName, "_id": docs[i].DocumentID()},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("bulk", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errs []error
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errs = append(errs, fmt.Errorf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk: %d of %d documents failed: %w", len(errs), len(docs), errors.Join(errs...))
	}

	e.logger.InfoContext(ctx, "bulk indexed products", slog.Int("count", len(docs)))
	return nil
}
