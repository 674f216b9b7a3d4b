// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for the
// HTTP server, the database, Supabase auth, the Redis cache, the n8n webhook,
// rate limiting, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "vhlabs-dashboard")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects and tunes the relational backend.
type DBConfig struct {
	Driver      string // sqlite|postgres
	Path        string // SQLite file path
	URL         string // Postgres DSN (DATABASE_URL)
	AutoMigrate bool   // run AutoMigrate + dev views at startup
	MaxOpen     int
	MaxIdle     int
}

// SupabaseConfig holds the hosted auth settings.
type SupabaseConfig struct {
	URL          string // SUPABASE_URL
	AnonKey      string // SUPABASE_ANON_KEY
	JWTSecret    string // SUPABASE_JWT_SECRET; enables local token verification
	AuthDisabled bool   // AUTH_DISABLED; development only
}

// CacheConfig configures the read cache. An empty Addr disables Redis and
// falls back to an in-process cache.
type CacheConfig struct {
	Addr     string
	Password string
	DB       int
	LongTTL  time.Duration // KPIs, performance, chart data
	ShortTTL time.Duration // recent activity, system health
}

// WebhookConfig configures the outbound n8n trigger.
type WebhookConfig struct {
	SendURL string
	Timeout time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test
	Environment       string // APP_ENV, reported on traces

	// Logging / Docs
	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	DB       DBConfig
	Supabase SupabaseConfig
	Cache    CacheConfig
	Webhook  WebhookConfig

	// ExportMaxRows caps CSV exports.
	ExportMaxRows int

	// Rate limiting
	RateRPS   float64
	RateBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load builds a Config from the environment. Every invalid setting is
// reported in the returned error, joined.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		Environment:       getenv("APP_ENV", "development"),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver:      strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			Path:        getenv("DB_PATH", "vhlabs.db"),
			URL:         getenv("DATABASE_URL", ""),
			AutoMigrate: getbool("DB_AUTO_MIGRATE", true),
			MaxOpen:     getint("DB_MAX_OPEN_CONNS", 10),
			MaxIdle:     getint("DB_MAX_IDLE_CONNS", 10),
		},
		Supabase: SupabaseConfig{
			URL:          strings.TrimRight(getenv("SUPABASE_URL", ""), "/"),
			AnonKey:      getenv("SUPABASE_ANON_KEY", ""),
			JWTSecret:    getenv("SUPABASE_JWT_SECRET", ""),
			AuthDisabled: getbool("AUTH_DISABLED", false),
		},
		Cache: CacheConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			LongTTL:  getdur("CACHE_TTL_LONG", 5*time.Minute),
			ShortTTL: getdur("CACHE_TTL_SHORT", 2*time.Minute),
		},
		Webhook: WebhookConfig{
			SendURL: getenv("N8N_SEND_WEBHOOK_URL", ""),
			Timeout: getdur("N8N_TIMEOUT", 10*time.Second),
		},

		ExportMaxRows: getint("EXPORT_MAX_ROWS", 10000),

		RateRPS:   getfloat("RATE_RPS", 10.0),
		RateBurst: getint("RATE_BURST", 20),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "vhlabs-dashboard"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cfg.normalize()
	return cfg, cfg.validate()
}

// normalize folds accepted aliases into their canonical spelling.
func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	switch c.DB.Driver {
	case "postgresql", "pg":
		c.DB.Driver = DriverPostgres
	}
}

// validate reports every problem at once so a broken deploy is fixed in one
// pass.
func (c Config) validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		check(true, "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	check(strings.TrimSpace(c.Port) == "", "PORT must not be empty")
	check(c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DB.Driver {
	case DriverSQLite:
		check(strings.TrimSpace(c.DB.Path) == "", "DB_PATH must not be empty")
	case DriverPostgres:
		check(strings.TrimSpace(c.DB.URL) == "", "DATABASE_URL is required when DB_DRIVER=postgres")
	default:
		check(true, "DB_DRIVER must be one of: sqlite, postgres")
	}
	// A JWT secret alone is enough to verify tokens locally.
	check(!c.Supabase.AuthDisabled && c.Supabase.JWTSecret == "" && (c.Supabase.URL == "" || c.Supabase.AnonKey == ""),
		"SUPABASE_URL and SUPABASE_ANON_KEY (or SUPABASE_JWT_SECRET) are required unless AUTH_DISABLED=true")

	check(c.Cache.LongTTL <= 0 || c.Cache.ShortTTL <= 0, "CACHE_TTL_LONG and CACHE_TTL_SHORT must be > 0")
	check(c.Webhook.Timeout <= 0, "N8N_TIMEOUT must be > 0")
	check(c.ExportMaxRows < 1, "EXPORT_MAX_ROWS must be >= 1")
	check(c.RateRPS < 0, "RATE_RPS must be >= 0")
	check(c.RateBurst < 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

// envOr parses key with parse. Unset, empty and unparsable values all yield
// def.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getenv(k, def string) string {
	return envOr(k, def, func(s string) (string, error) { return s, nil })
}

func getint(k string, def int) int { return envOr(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return envOr(k, def, time.ParseDuration) }

func getfloat(k string, def float64) float64 {
	return envOr(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getbool(k string, def bool) bool { return envOr(k, def, parseFlag) }

// parseFlag accepts the spellings operators put in .env files.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a flag: %q", s)
}

// splitCSV splits a comma list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeBasePath returns p with one leading slash and no trailing slash.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
