package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	return load(true)
}

// LoadLocal is Load for commands that never open a database: the
// database URL is optional and database settings are not validated.
func LoadLocal() (*Config, error) {
	return load(false)
}

func load(needDatabase bool) (*Config, error) {
	cfg := &Config{}

	l := loader{enforceRequired: needDatabase}
	if err := l.loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.validate(needDatabase); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

type loader struct {
	enforceRequired bool
}

// loadStruct walks v depth-first and fills every field carrying an env tag.
func (l loader) loadStruct(v reflect.Value) error {
	for i := range v.NumField() {
		f, fv := v.Type().Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			if err := l.loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		name, value, err := l.lookup(f.Tag)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

// lookup resolves the raw value for a tagged field: env, then envAlt,
// then default. Untagged fields yield an empty value.
func (l loader) lookup(tag reflect.StructTag) (name, value string, err error) {
	name = tag.Get("env")
	if name == "" {
		return "", "", nil
	}
	for _, key := range []string{name, tag.Get("envAlt")} {
		if key == "" {
			continue
		}
		if value = os.Getenv(key); value != "" {
			return name, value, nil
		}
	}
	if l.enforceRequired && tag.Get("required") == "true" {
		return name, "", fmt.Errorf("required environment variable %s is not set", name)
	}
	return name, tag.Get("default"), nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		// Split comma-separated values, trim whitespace
		var result []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(needDatabase bool) error {
	var p problems
	if needDatabase {
		c.Database.check(&p)
	}
	c.Server.check(&p)
	c.Upload.check(&p)
	c.Rate.check(&p)
	c.Security.check(&p)
	c.Logging.check(&p)
	c.Telemetry.check(&p)
	return p.err()
}

// problems collects every validation failure so they are reported together.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(p, "\n  - "))
}

func (d DatabaseConfig) check(p *problems) {
	if d.URL == "" {
		p.addf("DATABASE_URL is required")
	}
	switch {
	case d.MaxConns <= 0:
		p.addf("DB_MAX_CONNS must be positive")
	case d.MaxConns < d.MinConns:
		p.addf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", d.MaxConns, d.MinConns)
	}
	if d.MinConns < 0 {
		p.addf("DB_MIN_CONNS must be non-negative")
	}
}

func (s ServerConfig) check(p *problems) {
	if s.Port <= 0 || s.Port > 65535 {
		p.addf("SERVER_PORT (%d) must be 1-65535", s.Port)
	}
	if s.ReadTimeout < 0 {
		p.addf("SERVER_READ_TIMEOUT must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		p.addf("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
}

func (u UploadConfig) check(p *problems) {
	for _, f := range []struct {
		env string
		ok  bool
	}{
		{"UPLOAD_MAX_BYTES", u.MaxBytes > 0},
		{"UPLOAD_MAX_CONCURRENT", u.MaxConcurrent > 0},
		{"UPLOAD_TIMEOUT", u.Timeout > 0},
	} {
		if !f.ok {
			p.addf("%s must be positive", f.env)
		}
	}
	if u.MaxWait < 0 {
		p.addf("UPLOAD_MAX_WAIT_TIME must be non-negative")
	}
}

func (r RateLimitConfig) check(p *problems) {
	if !r.Enabled {
		return
	}
	if r.RequestsPerMinute <= 0 {
		p.addf("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if r.UploadLimit <= 0 {
		p.addf("RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}
	switch strings.ToLower(r.Storage) {
	case "memory":
	case "redis":
		if r.RedisURL == "" {
			p.addf("RATE_LIMIT_REDIS_URL is required when RATE_LIMIT_STORAGE is redis")
		}
	default:
		p.addf("RATE_LIMIT_STORAGE (%q) must be one of: memory, redis", r.Storage)
	}
}

func (s SecurityConfig) check(p *problems) {
	if s.RequireAPIKey && len(s.APIKeys) == 0 {
		p.addf("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}
}

func (l LoggingConfig) check(p *problems) {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		p.addf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		p.addf("LOG_FORMAT (%q) must be one of: text, json", l.Format)
	}
}

func (t TelemetryConfig) check(p *problems) {
	if t.TracingEnabled && t.OTLPEndpoint == "" {
		p.addf("OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is true")
	}
	if t.MetricsEnabled && !strings.HasPrefix(t.MetricsPath, "/") {
		p.addf("METRICS_PATH (%q) must start with /", t.MetricsPath)
	}
}

// String returns a safe string representation of the config for logging.
// Secrets such as database credentials and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d, AutoMigrate: %v}, ",
		maskURL(c.Database.URL), c.Database.MaxConns, c.Database.MinConns, c.Database.AutoMigrate)
	fmt.Fprintf(&b, "Upload: {MaxBytes: %d, MaxConcurrent: %d, Timeout: %s}, ",
		c.Upload.MaxBytes, c.Upload.MaxConcurrent, c.Upload.Timeout)
	fmt.Fprintf(&b, "Reconcile: {LegacyChainQuirks: %v}, ", c.Reconcile.LegacyChainQuirks)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d, Storage: %q}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.Storage)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Telemetry: {Tracing: %v, Metrics: %v}", c.Telemetry.TracingEnabled, c.Telemetry.MetricsEnabled)
	b.WriteString("}")
	return b.String()
}

// maskURL hides the password of a connection URL. Unparseable URLs are
// fully masked.
func maskURL(raw string) string {
	if raw == "" {
		return `""`
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[MASKED]"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
