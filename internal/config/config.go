package config

import (
	"fmt"
	"time"

	"github.com/muhammadjehanzaib/sultan-store/internal/domain"
	pkgconfig "github.com/muhammadjehanzaib/sultan-store/pkg/config"
	"github.com/muhammadjehanzaib/sultan-store/pkg/database"
)

// Config holds all configuration for the inventory service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"INVENTORY_HTTP_PORT" envDefault:"8007"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"store"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"store_secret"`
	PostgresDB   string `env:"INVENTORY_DB_NAME" envDefault:"store_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis backs consumer idempotency; disabled falls back to memory.
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"true"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RedisPoolSize        int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisDialTimeout     time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"2s"`
	RedisConnectAttempts int           `env:"REDIS_CONNECT_ATTEMPTS" envDefault:"3"`

	// Kafka
	KafkaBrokers   []string      `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	ConsumeOrders  bool          `env:"INVENTORY_CONSUME_ORDERS" envDefault:"true"`
	IdempotencyTTL time.Duration `env:"EVENT_IDEMPOTENCY_TTL" envDefault:"24h"`

	// Stock rules
	StockPolicy      string `env:"INVENTORY_STOCK_POLICY" envDefault:"clamp"`
	DefaultThreshold int    `env:"INVENTORY_DEFAULT_THRESHOLD" envDefault:"5"`
	HistoryLimit     int    `env:"STOCK_HISTORY_LIMIT" envDefault:"50"`

	// Periodic reconciliation. Zero interval disables the job.
	ReconcileInterval      time.Duration `env:"RECONCILE_INTERVAL" envDefault:"0s"`
	ReconcileRatePerSecond float64       `env:"RECONCILE_RATE_PER_SECOND" envDefault:"20"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofEnabled      bool     `env:"PPROF_ENABLED" envDefault:"false"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load inventory config: %w", err)
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
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.ConsumeOrders && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if _, err := domain.ParseStockPolicy(c.StockPolicy); err != nil {
		return fmt.Errorf("INVENTORY_STOCK_POLICY: %w", err)
	}
	if err := domain.ValidateThreshold(c.DefaultThreshold); err != nil {
		return fmt.Errorf("INVENTORY_DEFAULT_THRESHOLD: %w", err)
	}
	if c.HistoryLimit < 1 || c.HistoryLimit > domain.MaxHistoryLimit {
		return fmt.Errorf("STOCK_HISTORY_LIMIT must be between 1 and %d, got %d", domain.MaxHistoryLimit, c.HistoryLimit)
	}
	if c.ReconcileInterval < 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be >= 0, got %s", c.ReconcileInterval)
	}
	if c.ReconcileRatePerSecond < 0 {
		return fmt.Errorf("RECONCILE_RATE_PER_SECOND must be >= 0, got %f", c.ReconcileRatePerSecond)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("EVENT_IDEMPOTENCY_TTL must be > 0, got %s", c.IdempotencyTTL)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// Policy returns the parsed stock policy. Load has already validated it.
func (c *Config) Policy() domain.StockPolicy {
	p, _ := domain.ParseStockPolicy(c.StockPolicy)
	return p
}

// Postgres returns the connection pool settings.
func (c *Config) Postgres() *database.PostgresConfig {
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

// Redis returns the Redis client settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:            c.RedisHost,
		Port:            c.RedisPort,
		Password:        c.RedisPassword,
		DB:              c.RedisDB,
		PoolSize:        c.RedisPoolSize,
		DialTimeout:     c.RedisDialTimeout,
		ConnectAttempts: c.RedisConnectAttempts,
	}
}
