package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/productsearch/internal/domain"
	"github.com/utafrali/productsearch/internal/engine"
	apperrors "github.com/utafrali/productsearch/pkg/errors"
	"github.com/utafrali/productsearch/pkg/pagination"
	"github.com/utafrali/productsearch/pkg/tracing"
)

const tracerName = "github.com/utafrali/productsearch/internal/planner"

// DefaultRecommendationSize is how many documents the empty-result fallback returns.
const DefaultRecommendationSize = 5

// MissingQueryMessage is returned when q is absent or blank.
const MissingQueryMessage = "Query parameter `q` is required."

// ResultCache stores finished search results. Implementations must be safe
// for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.SearchResult, bool, error)
	Set(ctx context.Context, key string, result *domain.SearchResult) error
}

// Config tunes the planner.
type Config struct {
	Limits             pagination.Limits
	RecommendationSize int
	// Cache is optional.
	Cache ResultCache
}

// Planner turns raw search strings into ranked, paginated hits.
type Planner struct {
	index  engine.DocumentIndex
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a planner over index.
func New(index engine.DocumentIndex, cfg Config, logger *slog.Logger) *Planner {
	if cfg.Limits.Default <= 0 || cfg.Limits.Max <= 0 {
		cfg.Limits = pagination.DefaultLimits()
	}
	if cfg.Limits.MaxWindow <= 0 {
		cfg.Limits.MaxWindow = pagination.DefaultMaxWindow
	}
	if cfg.RecommendationSize <= 0 {
		cfg.RecommendationSize = DefaultRecommendationSize
	}
	return &Planner{
		index:  index,
		cfg:    cfg,
		logger: logger,
		tracer: tracing.Tracer(tracerName),
	}
}

// Search parses raw, runs the resulting query and, when nothing matches,
// returns the recommendation fallback instead of an empty page.
func (p *Planner) Search(ctx context.Context, raw string, page, pageSize int) (result *domain.SearchResult, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.InvalidInput(MissingQueryMessage)
	}

	start := time.Now()
	params := pagination.New(page, pageSize, p.cfg.Limits)
	if err := params.Err(); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "planner.Search", trace.WithAttributes(
		attribute.String("search.query", raw),
		attribute.Int("search.page", params.Page),
		attribute.Int("search.page_size", params.PageSize),
	))
	defer func() {
		outcome := outcomeError
		if err == nil {
			outcome = outcomeResults
			if result.TotalCount == 0 {
				outcome = outcomeRecommendations
			}
			span.SetAttributes(
				attribute.Int("search.total", result.TotalCount),
				attribute.String("search.outcome", outcome),
			)
		}
		searchesTotal.WithLabelValues(outcome).Inc()
		searchDuration.Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	key := CacheKey(raw, params)
	if cached, ok := p.cacheGet(ctx, key); ok {
		span.SetAttributes(attribute.Bool("search.cache_hit", true))
		return cached, nil
	}

	parsed := Parse(raw)
	span.SetAttributes(attribute.Bool("search.has_filters", parsed.HasFilters()))

	hits, err := p.index.Query(ctx, Build(parsed, params))
	if err != nil {
		return nil, apperrors.ServiceUnavailable("search is temporarily unavailable", fmt.Errorf("search query: %w", err))
	}

	result = &domain.SearchResult{
		Results:    domain.HitsFromDocuments(hits.Documents),
		TotalCount: hits.Total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: pagination.TotalPages(hits.Total, params.PageSize),
	}

	if hits.Total == 0 {
		result.Recommendations = p.recommend(ctx)
	}

	p.logger.DebugContext(ctx, "search executed",
		slog.String("query", raw),
		slog.String("free_text", parsed.FreeText),
		slog.Bool("has_filters", parsed.HasFilters()),
		slog.Int("total", result.TotalCount),
		slog.Int("recommendations", len(result.Recommendations)),
	)

	p.cacheSet(ctx, key, result)
	return result, nil
}

// recommend runs the fallback query. A failure here is logged and yields no
// recommendations; the primary search already succeeded.
func (p *Planner) recommend(ctx context.Context) []domain.ProductHit {
	ctx, span := p.tracer.Start(ctx, "planner.Recommend")
	hits, err := p.index.Query(ctx, RecommendationQuery(p.cfg.RecommendationSize))
	tracing.EndSpan(span, err)
	if err != nil {
		p.logger.WarnContext(ctx, "recommendation query failed", slog.String("error", err.Error()))
		return []domain.ProductHit{}
	}
	return domain.HitsFromDocuments(hits.Documents)
}

func (p *Planner) cacheGet(ctx context.Context, key string) (*domain.SearchResult, bool) {
	if p.cfg.Cache == nil {
		return nil, false
	}
	cached, ok, err := p.cfg.Cache.Get(ctx, key)
	switch {
	case err != nil:
		searchCacheLookups.WithLabelValues("error").Inc()
		p.logger.WarnContext(ctx, "search cache read failed", slog.String("error", err.Error()))
		return nil, false
	case !ok:
		searchCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	searchCacheLookups.WithLabelValues("hit").Inc()
	return cached, true
}

func (p *Planner) cacheSet(ctx context.Context, key string, result *domain.SearchResult) {
	if p.cfg.Cache == nil {
		return
	}
	if err := p.cfg.Cache.Set(ctx, key, result); err != nil {
		p.logger.WarnContext(ctx, "search cache write failed", slog.String("error", err.Error()))
	}
}

// CacheKey identifies a search by its normalized text and page.
func CacheKey(raw string, params pagination.Params) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", normalized, params.Page, params.PageSize)))
	return hex.EncodeToString(sum[:])
}
