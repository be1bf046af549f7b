// Package config provides centralized configuration management for orgsync.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Reconcile ReconcileConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 0, batches set their own deadline)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for lookup requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies pending migrations on server start (default: false)
	AutoMigrate bool `env:"DB_MIGRATE" default:"false"`
}

// UploadConfig holds batch intake settings.
type UploadConfig struct {
	// MaxBytes is the maximum accepted batch size in bytes (default: 10MB)
	MaxBytes int64 `env:"UPLOAD_MAX_BYTES" default:"10485760"`

	// MaxConcurrent is the maximum number of batches reconciled at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a batch waits for a free slot; 0 rejects at once (default: 30s)
	MaxWait time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single batch (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// ReconcileConfig holds reconciliation engine settings.
type ReconcileConfig struct {
	// LegacyChainQuirks keeps an existing employee's chain when its manager
	// has no chain record, and gives new employees an empty chain (default: false)
	LegacyChainQuirks bool `env:"RECONCILE_LEGACY_CHAIN_QUIRKS" default:"false"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit per client IP for lookups (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute per client IP for batch uploads (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`

	// Storage is the counter backend: memory or redis (default: memory)
	Storage string `env:"RATE_LIMIT_STORAGE" default:"memory"`

	// RedisURL is the redis connection URL when Storage is redis
	RedisURL string `env:"RATE_LIMIT_REDIS_URL" envAlt:"REDIS_URL"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// TelemetryConfig holds tracing and metrics settings.
type TelemetryConfig struct {
	// TracingEnabled exports spans over OTLP/HTTP (default: false)
	TracingEnabled bool `env:"OTEL_ENABLED" default:"false"`

	// OTLPEndpoint is the collector host:port (default: localhost:4318)
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`

	// OTLPInsecure disables TLS to the collector (default: true)
	OTLPInsecure bool `env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// ServiceName is reported as service.name (default: orgsync)
	ServiceName string `env:"OTEL_SERVICE_NAME" default:"orgsync"`

	// MetricsEnabled serves Prometheus metrics (default: true)
	MetricsEnabled bool `env:"METRICS_ENABLED" default:"true"`

	// MetricsPath is where metrics are served (default: /metrics)
	MetricsPath string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
