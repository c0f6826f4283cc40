package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Database settings
	Database DatabaseConfig

	// Query limits applied by the contract store and link expansion engine
	Query QueryConfig

	// Stream matcher retry behavior
	Stream StreamConfig

	// Contract cache front-end tuning
	Cache CacheConfig

	// Bearer-token auth / role resolution
	Auth AuthConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"autumndb"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"autumndb"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	// StatementTimeout bounds how long any single query may run before
	// Postgres cancels it with SQLSTATE 57014.
	StatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"30s"`
	QueryDebug       bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// QueryConfig bounds list operations across the contract store and the
// link expansion engine.
type QueryConfig struct {
	// DefaultLimit is used when a caller omits an explicit limit.
	DefaultLimit int `env:"QUERY_DEFAULT_LIMIT" envDefault:"100"`
	// MaxLimit is the hard ceiling; requests above it are rejected
	// with apperror.ErrInvalidLimit rather than silently clamped.
	MaxLimit int `env:"QUERY_MAX_LIMIT" envDefault:"1000"`
	// MaxLinkDepth is loaded from the environment but nothing reads it:
	// the link expansion engine does not bound how deeply nested $$links
	// are materialized.
	MaxLinkDepth int `env:"QUERY_MAX_LINK_DEPTH" envDefault:"8"`
}

// StreamConfig tunes the stream matcher's LISTEN/NOTIFY subscriber.
type StreamConfig struct {
	// ReconnectDelay is the longest interval the LISTEN connection waits
	// between attempts to re-establish itself after a drop.
	ReconnectDelay time.Duration `env:"STREAM_RECONNECT_DELAY" envDefault:"3s"`
	// RetryDelay is the delay before the single re-attempt of a link
	// notification that reached no known root yet. It is also the
	// shortest interval the LISTEN connection waits before reconnecting.
	RetryDelay time.Duration `env:"STREAM_RETRY_DELAY" envDefault:"500ms"`
	// BufferSize bounds the depth of each subscriber's Events and Errors
	// channels.
	BufferSize int `env:"STREAM_BUFFER_SIZE" envDefault:"256"`
}

// CacheConfig tunes the contract cache front-end (pkg/cache).
type CacheConfig struct {
	// MaxEntries bounds the LRU's resident set.
	MaxEntries int `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
	// TTL is how long a cached contract is served before a re-read.
	TTL time.Duration `env:"CACHE_TTL" envDefault:"1m"`
	// SweepSchedule is the cron expression for the periodic eviction
	// sweep of expired entries.
	SweepSchedule string `env:"CACHE_SWEEP_SCHEDULE" envDefault:"@every 1m"`
}

// AuthConfig tunes the bearer-token middleware's role resolution.
type AuthConfig struct {
	// JWTSecret signs/verifies the HS256 bearer tokens issued to callers.
	// A caller's role is carried as the token's "role" claim.
	JWTSecret string `env:"AUTH_JWT_SECRET" envDefault:"dev-secret-change-me"`
	// DevTokensEnabled accepts the fixed devToken->role map in
	// pkg/auth.Middleware without requiring a signed JWT. Only meant for
	// local development and tests; never enable in production.
	DevTokensEnabled bool `env:"AUTH_DEV_TOKENS_ENABLED" envDefault:"false"`
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.Int("query_max_limit", cfg.Query.MaxLimit),
	)

	return cfg, nil
}
