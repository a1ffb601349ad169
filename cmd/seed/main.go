// Command seed fills the catalog with synthetic products and, unless told
// otherwise, reindexes them into Elasticsearch.
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
	"github.com/utafrali/productsearch/internal/seed"
	"github.com/utafrali/productsearch/internal/service"
	"github.com/utafrali/productsearch/pkg/database"
	"github.com/utafrali/productsearch/pkg/logger"
)

type options struct {
	count     int
	seed      uint64
	batchSize int
	reindex   bool
}

func main() {
	var opts options
	flag.IntVar(&opts.count, "count", 1000, "number of products to generate")
	flag.Uint64Var(&opts.seed, "seed", 42, "random seed; the same seed yields the same catalog")
	flag.IntVar(&opts.batchSize, "batch-size", seed.DefaultBatchSize, "products per INSERT statement")
	flag.BoolVar(&opts.reindex, "reindex", true, "reindex Elasticsearch after seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(config.ServiceName+"-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, opts, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log *slog.Logger) error {
	if opts.count < 1 {
		return fmt.Errorf("count must be positive, got %d", opts.count)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	categoryIDs, err := seed.EnsureCategories(ctx, pool)
	if err != nil {
		return err
	}

	start := time.Now()
	products := seed.Generate(opts.count, opts.seed, start)
	inserted, err := seed.InsertProducts(ctx, pool, products, categoryIDs, opts.batchSize)
	if err != nil {
		return err
	}
	log.Info("catalog seeded",
		slog.Int("generated", len(products)),
		slog.Int64("inserted", inserted),
		slog.Duration("duration", time.Since(start)),
	)

	if !opts.reindex || cfg.SearchEngine != config.EngineElasticsearch {
		return nil
	}

	index, err := app.OpenIndex(ctx, cfg, log)
	if err != nil {
		return err
	}
	result, err := service.NewReindexer(postgres.NewProductRepository(pool), index, cfg.ReindexBatchSize, log).Reindex(ctx, false)
	if err != nil {
		return err
	}
	log.Info("index rebuilt", slog.Int("indexed", result.Indexed), slog.Int("batches", result.Batches))
	return nil
}
