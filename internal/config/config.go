// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings such as the
// Telegram bot, chat and admin allow-lists, the message store, the optional
// admin HTTP API, rate limiting, logging and observability.
//
// The loaded Config is built once at startup and passed by value to the
// components that need it; nothing in it is mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BotConfig defines Telegram bot settings.
type BotConfig struct {
	Enabled     bool          // BOT_ENABLED
	Token       string        // TELEGRAM_BOT_TOKEN
	PollTimeout time.Duration // BOT_POLL_TIMEOUT (long-polling timeout)
	Workers     int           // INGEST_WORKERS (max concurrently handled updates)
	Debug       bool          // BOT_DEBUG (log raw API traffic)
	SkipPending bool          // BOT_SKIP_PENDING (drop updates queued while offline)
}

// DBConfig selects the backing store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite file)
	URL    string // DATABASE_URL (postgres)
}

// DSN returns the driver-specific connection string.
func (c DBConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "tg-message-logger")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Telegram
	Bot BotConfig

	// Access control
	AllowedChats IDSet    // ALLOWED_CHAT_IDS: chats that are logged and exportable
	AdminIDs     IDSet    // ADMIN_IDS: Telegram users allowed to export
	AdminTokens  []string // ADMIN_API_TOKENS: bearer tokens for the HTTP API

	// Export
	DefaultLimit int // DEFAULT_EXPORT_LIMIT; 0 means unbounded

	// Store
	DB DBConfig

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Admin HTTP API
	HTTPEnabled       bool
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test
	SwaggerEnabled    bool
	APIBasePath       string

	// Rate limiting (exports)
	RateRPS   float64
	RateBurst int
	RedisURL  string // shared limiter when set

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	ShutdownTimeout time.Duration

	// Observability
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

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	allowed, err := getidset("ALLOWED_CHAT_IDS")
	if err != nil {
		return Config{}, err
	}
	admins, err := getidset("ADMIN_IDS")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Bot: BotConfig{
			Enabled:     getbool("BOT_ENABLED", true),
			Token:       strings.TrimSpace(getenv("TELEGRAM_BOT_TOKEN", "")),
			PollTimeout: getdur("BOT_POLL_TIMEOUT", 60*time.Second),
			Workers:     getint("INGEST_WORKERS", 16),
			Debug:       getbool("BOT_DEBUG", false),
			SkipPending: getbool("BOT_SKIP_PENDING", true),
		},

		AllowedChats: allowed,
		AdminIDs:     admins,
		AdminTokens:  splitCSV(getenv("ADMIN_API_TOKENS", "")),

		DefaultLimit: getint("DEFAULT_EXPORT_LIMIT", 1000),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "messages.db"),
			URL:    getenv("DATABASE_URL", ""),
		},

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		HTTPEnabled:       getbool("HTTP_ENABLED", false),
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		SwaggerEnabled:    getbool("SWAGGER_ENABLED", false),
		APIBasePath:       normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 5),
		RedisURL:  strings.TrimSpace(getenv("REDIS_URL", "")),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		ShutdownTimeout: getdur("SHUTDOWN_TIMEOUT", 15*time.Second),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "tg-message-logger"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" || cfg.DB.Driver == "pg" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if cfg.Bot.Enabled {
		if cfg.Bot.Token == "" {
			return cfg, errors.New("TELEGRAM_BOT_TOKEN must be set when BOT_ENABLED")
		}
		if cfg.AllowedChats.Len() == 0 {
			return cfg, errors.New("ALLOWED_CHAT_IDS must list at least one chat id when BOT_ENABLED")
		}
	}
	if cfg.Bot.PollTimeout <= 0 {
		return cfg, errors.New("BOT_POLL_TIMEOUT must be > 0")
	}
	if cfg.Bot.Workers < 1 {
		return cfg, errors.New("INGEST_WORKERS must be >= 1")
	}
	if cfg.DefaultLimit < 0 {
		return cfg, errors.New("DEFAULT_EXPORT_LIMIT must be >= 0 (0 = unbounded)")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL must be set when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.HTTPEnabled && len(cfg.AdminTokens) == 0 {
		return cfg, errors.New("ADMIN_API_TOKENS must list at least one token when HTTP_ENABLED")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// getidset parses a comma-separated list of signed 64-bit ids. Unlike the
// scalar helpers it rejects bad entries instead of defaulting: a typo in an
// allow-list must not silently widen or narrow access.
func getidset(k string) (IDSet, error) {
	parts := splitCSV(getenv(k, ""))
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return IDSet{}, fmt.Errorf("%s: invalid id %q", k, p)
		}
		ids = append(ids, id)
	}
	return NewIDSet(ids...), nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
