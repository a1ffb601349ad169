package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/productsearch/pkg/health"
	"github.com/utafrali/productsearch/pkg/middleware"
)

// Services are the application services the router exposes.
type Services struct {
	Searcher  Searcher
	Catalog   Catalog
	Reindexer Reindexer
}

// RouterConfig tunes the router's middleware.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
	// SearchLimiter throttles the search endpoint per client IP. Optional.
	SearchLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RealIP)
	r.Use(chimw.Compress(5))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	searchHandler := NewSearchHandler(svc.Searcher, logger)
	productHandler := NewProductHandler(svc.Catalog, logger)
	categoryHandler := NewCategoryHandler(svc.Catalog, logger)
	adminHandler := NewAdminHandler(svc.Reindexer, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(cfg.RequestTimeout))
			r.Use(ContentTypeJSON)

			r.Group(func(r chi.Router) {
				if cfg.SearchLimiter != nil {
					r.Use(cfg.SearchLimiter.Handler)
				}
				r.Get("/search", searchHandler.Search)
			})

			r.Route("/categories", func(r chi.Router) {
				r.With(middleware.CacheControl(time.Minute)).Get("/", categoryHandler.ListCategories)
				r.Post("/", categoryHandler.CreateCategory)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.ListProducts)
				r.Post("/", productHandler.CreateProduct)
				r.Get("/{id}", productHandler.GetProduct)
				r.Put("/{id}", productHandler.UpdateProduct)
				r.Delete("/{id}", productHandler.DeleteProduct)
			})
		})

		// Reindexing a large catalog outlives the request timeout.
		r.With(ContentTypeJSON).Post("/admin/reindex", adminHandler.Reindex)
	})

	return r
}
