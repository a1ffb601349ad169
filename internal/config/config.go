package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/utafrali/productsearch/pkg/config"
	"github.com/utafrali/productsearch/pkg/database"
	"github.com/utafrali/productsearch/pkg/httpclient"
	"github.com/utafrali/productsearch/pkg/pagination"
	"github.com/utafrali/productsearch/pkg/tracing"
)

// Index sync modes.
const (
	SyncModeInline = "inline"
	SyncModeKafka  = "kafka"
)

// Search engine backends.
const (
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// ServiceName is used for logs, metrics and traces.
const ServiceName = "productsearch"

// Config holds all configuration for the product search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int           `env:"HTTP_PORT" envDefault:"8080"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"productsearch"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	DBMaxConns       int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns       int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	LogSlowQueryMS   int    `env:"LOG_SLOW_QUERY_MS" envDefault:"200"`

	// Search engine
	SearchEngine        string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL    string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex  string        `env:"ELASTICSEARCH_INDEX" envDefault:"products_project_1"`
	ESMaxRetries        int           `env:"ES_MAX_RETRIES" envDefault:"2"`
	ESTimeout           time.Duration `env:"ES_TIMEOUT" envDefault:"10s"`
	ESBreakerTimeout    time.Duration `env:"ES_BREAKER_TIMEOUT" envDefault:"30s"`
	ESBreakerMinRequest uint32        `env:"ES_BREAKER_MIN_REQUESTS" envDefault:"5"`
	ESBreakerRatio      float64       `env:"ES_BREAKER_FAILURE_RATIO" envDefault:"0.5"`

	// Search behavior
	SearchDefaultPageSize    int `env:"SEARCH_DEFAULT_PAGE_SIZE" envDefault:"10"`
	SearchMaxPageSize        int `env:"SEARCH_MAX_PAGE_SIZE" envDefault:"100"`
	SearchMaxResultWindow    int `env:"SEARCH_MAX_RESULT_WINDOW" envDefault:"10000"`
	SearchRecommendationSize int `env:"SEARCH_RECOMMENDATION_SIZE" envDefault:"5"`

	// Redis (search cache, event idempotency)
	RedisEnabled   bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost      string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort      int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB" envDefault:"0"`
	SearchCacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"30s"`

	// Index synchronization
	IndexSyncMode      string   `env:"INDEX_SYNC_MODE" envDefault:"inline"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"productsearch-indexer"`
	KafkaConsumers     bool     `env:"KAFKA_CONSUMERS_ENABLED" envDefault:"true"`

	// Rate limiting
	SearchRateLimitRPS   float64 `env:"SEARCH_RATE_LIMIT_RPS" envDefault:"20"`
	SearchRateLimitBurst int     `env:"SEARCH_RATE_LIMIT_BURST" envDefault:"40"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Reindex
	ReindexBatchSize int `env:"REINDEX_BATCH_SIZE" envDefault:"500"`
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("load productsearch config: %w", err)
	}
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load productsearch config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("invalid postgres port: %d", c.PostgresPort)
	}
	switch c.SearchEngine {
	case EngineElasticsearch, EngineMemory:
	default:
		return fmt.Errorf("invalid SEARCH_ENGINE %q: must be %s or %s", c.SearchEngine, EngineElasticsearch, EngineMemory)
	}
	switch c.IndexSyncMode {
	case SyncModeInline, SyncModeKafka:
	default:
		return fmt.Errorf("invalid INDEX_SYNC_MODE %q: must be %s or %s", c.IndexSyncMode, SyncModeInline, SyncModeKafka)
	}
	if c.IndexSyncMode == SyncModeKafka && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when INDEX_SYNC_MODE=%s", SyncModeKafka)
	}
	if c.SearchDefaultPageSize < 1 || c.SearchMaxPageSize < c.SearchDefaultPageSize {
		return fmt.Errorf("invalid search page sizes: default %d, max %d", c.SearchDefaultPageSize, c.SearchMaxPageSize)
	}
	if c.SearchMaxResultWindow < c.SearchMaxPageSize {
		return fmt.Errorf("invalid SEARCH_MAX_RESULT_WINDOW: %d is below SEARCH_MAX_PAGE_SIZE %d", c.SearchMaxResultWindow, c.SearchMaxPageSize)
	}
	if c.SearchRecommendationSize < 1 {
		return fmt.Errorf("invalid SEARCH_RECOMMENDATION_SIZE: %d", c.SearchRecommendationSize)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("invalid OTEL_SAMPLE_RATE: %v (must be between 0 and 1)", c.OTELSampleRate)
	}
	if c.ReindexBatchSize < 1 {
		return fmt.Errorf("invalid REINDEX_BATCH_SIZE: %d", c.ReindexBatchSize)
	}
	return nil
}

// Postgres returns the connection settings for the catalog database.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		MaxConns: c.DBMaxConns,
		MinConns: c.DBMinConns,
	}
}

// Redis returns the connection settings for the cache.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// SlowQueryThreshold is zero when slow query logging is off.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.LogSlowQueryMS) * time.Millisecond
}

// PageLimits returns the search pagination bounds.
func (c *Config) PageLimits() pagination.Limits {
	return pagination.Limits{
		Default:   c.SearchDefaultPageSize,
		Max:       c.SearchMaxPageSize,
		MaxWindow: c.SearchMaxResultWindow,
	}
}

// ESTransport returns retry and breaker settings for the Elasticsearch client.
func (c *Config) ESTransport() (httpclient.Config, httpclient.CircuitBreakerConfig) {
	hc := httpclient.DefaultConfig()
	hc.MaxRetries = c.ESMaxRetries
	hc.Timeout = c.ESTimeout

	cb := httpclient.DefaultCircuitBreakerConfig(EngineElasticsearch)
	cb.Timeout = c.ESBreakerTimeout
	cb.MinRequests = c.ESBreakerMinRequest
	cb.FailureRatio = c.ESBreakerRatio
	return hc, cb
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing() tracing.Config {
	tc := tracing.DefaultConfig(ServiceName)
	tc.Enabled = c.OTELEnabled
	tc.OTLPEndpoint = c.OTELEndpoint
	tc.SampleRate = c.OTELSampleRate
	tc.Environment = c.Environment
	return tc
}
