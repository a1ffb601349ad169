package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/productsearch/internal/config"
	"github.com/utafrali/productsearch/internal/engine"
	esengine "github.com/utafrali/productsearch/internal/engine/elasticsearch"
	"github.com/utafrali/productsearch/internal/engine/memory"
	"github.com/utafrali/productsearch/pkg/httpclient"
)

// OpenIndex builds the document index selected by SEARCH_ENGINE. An
// Elasticsearch index is created with its mapping when it does not exist.
func OpenIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engine.DocumentIndex, error) {
	switch cfg.SearchEngine {
	case config.EngineMemory:
		logger.Info("in-memory search engine initialized")
		return memory.New(), nil
	case config.EngineElasticsearch:
		hc, cb := cfg.ESTransport()
		eng, err := esengine.New(esengine.Config{
			Addresses: []string{cfg.ElasticsearchURL},
			Index:     cfg.ElasticsearchIndex,
			Transport: httpclient.New(hc, cb, logger),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		if err := eng.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("ensure elasticsearch index: %w", err)
		}
		logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", eng.IndexName()),
		)
		return eng, nil
	default:
		return nil, fmt.Errorf("unknown search engine %q", cfg.SearchEngine)
	}
}
