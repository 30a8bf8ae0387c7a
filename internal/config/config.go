package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/hasan-mia/techstore-ui/pkg/config"
	"github.com/hasan-mia/techstore-ui/pkg/database"
	"github.com/hasan-mia/techstore-ui/pkg/tracing"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort   int      `env:"HTTP_PORT" envDefault:"8080"`
	PprofCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Session state storage
	StorageBackend   string `env:"STORAGE_BACKEND" envDefault:"redis"`
	StateTTLHours    int    `env:"STATE_TTL_HOURS" envDefault:"720"`
	SweepIntervalMin int    `env:"STATE_SWEEP_INTERVAL_MINUTES" envDefault:"60"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost        string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort        int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser        string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPassword    string `env:"POSTGRES_PASSWORD" envDefault:""`
	PostgresDB          string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode     string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
	PostgresMaxConns    int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	PostgresSlowQueryMs int    `env:"POSTGRES_SLOW_QUERY_MS" envDefault:"200"` // zero disables slow query logging

	// Product catalog backend
	ProductAPIURL          string `env:"PRODUCT_API_URL" envDefault:"http://localhost:5000/api"`
	ProductCacheTTLSeconds int    `env:"PRODUCT_CACHE_TTL_SECONDS" envDefault:"300"`

	// Kafka. Empty brokers disables both publishing and the catalog feed.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	CatalogEventsTopic string   `env:"CATALOG_EVENTS_TOPIC" envDefault:"catalog.product.updated"`
	ConsumerGroup      string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"storefront"`

	// Session identity. Empty secret disables bearer tokens; guests still work.
	JWTSecret string `env:"JWT_SECRET" envDefault:""`

	// Rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	switch c.StorageBackend {
	case BackendRedis, BackendPostgres, BackendMemory, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.StateTTLHours < 0 {
		errs = append(errs, fmt.Errorf("STATE_TTL_HOURS must not be negative"))
	}
	if c.SweepIntervalMin < 1 {
		errs = append(errs, fmt.Errorf("STATE_SWEEP_INTERVAL_MINUTES must be at least 1"))
	}
	if c.PostgresSlowQueryMs < 0 {
		errs = append(errs, fmt.Errorf("POSTGRES_SLOW_QUERY_MS must not be negative"))
	}
	if c.ProductAPIURL == "" {
		errs = append(errs, fmt.Errorf("PRODUCT_API_URL is required"))
	}
	if c.ProductCacheTTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("PRODUCT_CACHE_TTL_SECONDS must not be negative"))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("rate limit needs RATE_LIMIT_RPS > 0 and RATE_LIMIT_BURST >= 1"))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1]"))
	}
	if c.Environment == "production" && c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 bytes in production"))
	}
	return errors.Join(errs...)
}

// StateTTL is the expiry applied to cart and wishlist entries. Zero means none.
func (c *Config) StateTTL() time.Duration {
	return time.Duration(c.StateTTLHours) * time.Hour
}

// ProductCacheTTL is how long a fetched product snapshot stays cached.
func (c *Config) ProductCacheTTL() time.Duration {
	return time.Duration(c.ProductCacheTTLSeconds) * time.Second
}

// SlowQueryThreshold is the duration above which postgres queries are logged.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.PostgresSlowQueryMs) * time.Millisecond
}

// SweepInterval is the period of the expired-state sweeper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}

// KafkaEnabled reports whether any broker is configured.
func (c *Config) KafkaEnabled() bool {
	for _, b := range c.KafkaBrokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// Postgres returns the connection settings for the postgres backend.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		DBName:   c.PostgresDB,
		SSLMode:  c.PostgresSSLMode,
		MaxConns: c.PostgresMaxConns,
	}
}

// Redis returns the connection settings for the redis backend.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPass, DB: c.RedisDB}
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing(serviceName string) tracing.Config {
	cfg := tracing.DefaultConfig(serviceName)
	cfg.Environment = c.Environment
	cfg.Enabled = c.OTELEnabled
	cfg.OTLPEndpoint = c.OTELEndpoint
	cfg.SampleRate = c.OTELSampleRate
	return cfg
}
