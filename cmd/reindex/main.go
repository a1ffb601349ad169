// Command reindex rebuilds the search index from the product catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/utafrali/productsearch/internal/app"
	"github.com/utafrali/productsearch/internal/config"
	"github.com/utafrali/productsearch/internal/repository/postgres"
	"github.com/utafrali/productsearch/internal/service"
	"github.com/utafrali/productsearch/pkg/database"
	"github.com/utafrali/productsearch/pkg/logger"
)

func main() {
	recreate := flag.Bool("recreate", false, "drop and recreate the index before indexing")
	batchSize := flag.Int("batch-size", 0, "products per bulk request (default REINDEX_BATCH_SIZE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *batchSize > 0 {
		cfg.ReindexBatchSize = *batchSize
	}

	log := logger.New(config.ServiceName+"-reindex", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *recreate, log); err != nil {
		log.Error("reindex failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, recreate bool, log *slog.Logger) error {
	if cfg.SearchEngine != config.EngineElasticsearch {
		return fmt.Errorf("reindex needs SEARCH_ENGINE=%s, got %q", config.EngineElasticsearch, cfg.SearchEngine)
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connectCancel()

	pool, err := database.NewPostgresPool(connectCtx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	index, err := app.OpenIndex(connectCtx, cfg, log)
	if err != nil {
		return err
	}

	reindexer := service.NewReindexer(postgres.NewProductRepository(pool), index, cfg.ReindexBatchSize, log)
	result, err := reindexer.Reindex(ctx, recreate)
	if err != nil {
		return err
	}

	log.Info("reindex finished",
		slog.Int("indexed", result.Indexed),
		slog.Int("batches", result.Batches),
		slog.Bool("recreated", result.Recreated),
		slog.Duration("duration", result.Duration),
	)
	return nil
}
