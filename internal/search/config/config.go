package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/eloritzkovitz/voltrico/pkg/config"
)

// Config holds all configuration for the search service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SEARCH_HTTP_PORT" envDefault:"8030"`

	// Search engine selection (elasticsearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"elasticsearch"`

	// Elasticsearch
	ElasticsearchURL string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ProductsIndex    string `env:"SEARCH_PRODUCTS_INDEX" envDefault:"products"`
	OrdersIndex      string `env:"SEARCH_ORDERS_INDEX" envDefault:"orders"`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	ConsumerGroup string   `env:"SEARCH_CONSUMER_GROUP" envDefault:"search-service"`

	// Consumer retry policy
	ConsumerMaxRetries     int           `env:"SEARCH_CONSUMER_MAX_RETRIES" envDefault:"3"`
	ConsumerRetryBackoff   time.Duration `env:"SEARCH_CONSUMER_RETRY_BACKOFF" envDefault:"100ms"`
	ConsumerHandlerTimeout time.Duration `env:"SEARCH_CONSUMER_HANDLER_TIMEOUT" envDefault:"30s"`

	// Idempotency store (redis or memory)
	IdempotencyBackend string        `env:"SEARCH_IDEMPOTENCY_BACKEND" envDefault:"memory"`
	IdempotencyTTL     time.Duration `env:"SEARCH_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Redis (used when IdempotencyBackend is redis)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Catalog service, used by the reindex endpoint
	CatalogServiceURL string `env:"CATALOG_SERVICE_URL" envDefault:"http://localhost:8010"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint    string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSampleRate float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.SearchEngine {
	case "elasticsearch", "memory":
	default:
		return fmt.Errorf("invalid search engine %q: must be elasticsearch or memory", c.SearchEngine)
	}
	switch c.IdempotencyBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("invalid idempotency backend %q: must be redis or memory", c.IdempotencyBackend)
	}
	return nil
}
