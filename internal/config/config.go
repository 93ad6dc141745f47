package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/najeemsuhail/ecommerce-store-sub000/pkg/config"
	"github.com/najeemsuhail/ecommerce-store-sub000/pkg/database"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Search engines.
const (
	SearchElasticsearch = "elasticsearch"
	SearchMemory        = "memory"
	SearchNone          = "none"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CATALOG_HTTP_PORT" envDefault:"8002"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"catalog_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Search
	SearchEngine       string        `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`
	ElasticsearchURL   string        `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string        `env:"ELASTICSEARCH_INDEX" envDefault:"catalog_products"`
	IndexTimeout       time.Duration `env:"SEARCH_INDEX_TIMEOUT" envDefault:"2s"`
	UnionWindow        int           `env:"SEARCH_UNION_WINDOW" envDefault:"1000"`
	DefaultLimit       int           `env:"SEARCH_DEFAULT_LIMIT" envDefault:"20"`
	MaxLimit           int           `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
	SearchCacheEnabled bool          `env:"SEARCH_CACHE_ENABLED" envDefault:"false"`
	SearchCacheTTL     time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"30s"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"catalog-indexer"`

	// Import
	ImportConcurrency   int    `env:"IMPORT_CONCURRENCY" envDefault:"1"`
	ImportChunkSize     int    `env:"IMPORT_CHUNK_SIZE" envDefault:"25"`
	ImportMaxErrors     int    `env:"IMPORT_MAX_ERRORS" envDefault:"100"`
	ImportDefaultSource string `env:"IMPORT_DEFAULT_SOURCE" envDefault:"feed"`

	// Remote feeds
	FeedURLs        []string      `env:"FEED_URLS" envSeparator:","`
	FeedPageSize    int           `env:"FEED_PAGE_SIZE" envDefault:"100"`
	FeedPageTimeout time.Duration `env:"FEED_PAGE_TIMEOUT" envDefault:"15s"`

	IndexSyncTimeout time.Duration `env:"INDEX_SYNC_TIMEOUT" envDefault:"5s"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	return cfg, nil
}

// Validate is called by pkgconfig.Load after parsing.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageDriver {
	case StoragePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", StoragePostgres, StorageMemory, c.StorageDriver)
	}
	switch c.SearchEngine {
	case SearchElasticsearch:
		if c.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is required")
		}
	case SearchMemory, SearchNone:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be one of elasticsearch, memory, none; got %q", c.SearchEngine)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.ImportConcurrency < 1 {
		return fmt.Errorf("IMPORT_CONCURRENCY must be at least 1, got %d", c.ImportConcurrency)
	}
	if c.ImportChunkSize < 1 || c.ImportChunkSize > 500 {
		return fmt.Errorf("IMPORT_CHUNK_SIZE must be between 1 and 500, got %d", c.ImportChunkSize)
	}
	if c.ImportMaxErrors < 1 {
		return fmt.Errorf("IMPORT_MAX_ERRORS must be at least 1, got %d", c.ImportMaxErrors)
	}
	if c.DefaultLimit < 1 || c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("SEARCH_DEFAULT_LIMIT must be positive and not above SEARCH_MAX_LIMIT")
	}
	if c.UnionWindow < c.MaxLimit {
		return fmt.Errorf("SEARCH_UNION_WINDOW must be at least SEARCH_MAX_LIMIT")
	}
	if c.FeedPageSize < 1 {
		return fmt.Errorf("FEED_PAGE_SIZE must be positive")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// PostgresConfig returns the connection settings for database.NewPostgresPool.
func (c *Config) PostgresConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// RedisConfig returns the Redis connection settings.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}
