// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database selection, authentication, the moderation pipeline, and
// observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
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
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the relational store.
type DBConfig struct {
	Driver string // postgres|sqlite
	DSN    string // DATABASE_URL, required for postgres
	Path   string // DB_PATH, sqlite file
}

// AuthConfig controls verification of provider-issued access tokens and
// the moderator privilege check.
type AuthConfig struct {
	JWTSecret      string   // HS256 secret shared with the auth provider
	DevHeader      bool     // accept X-User-ID style headers (local/testing)
	ModeratorRoles []string // role claims that grant moderation access
	AdminEmails    []string // explicit moderator allowlist
}

// ModerationConfig tunes the content moderation pipeline.
type ModerationConfig struct {
	SystemModeratorID string        // reporter id used for auto-generated flags
	AnalyzerFailOpen  bool          // approve when the analyzer crashes
	ContentRulesPath  string        // optional TOML word-list overrides
	MaxReviewsPerDay  int           // per-user submission quota (0 disables)
	PollInterval      time.Duration // outbox worker poll period
	MaxAttempts       int           // outbox retries before a job is failed
	BatchSize         int           // jobs claimed per poll
	JobLease          time.Duration // processing jobs older than this are re-queued
}

// RedisConfig enables the Redis-backed quota store when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig enables moderator e-mail alerts when Host is set.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   []string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB         DBConfig
	Auth       AuthConfig
	Moderation ModerationConfig
	Redis      RedisConfig
	SMTP       SMTPConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

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
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:    getenv("DATABASE_URL", ""),
			Path:   getenv("DB_PATH", "reviews.db"),
		},
		Auth: AuthConfig{
			JWTSecret:      getenv("JWT_SECRET", ""),
			DevHeader:      getbool("AUTH_DEV_HEADER", false),
			ModeratorRoles: splitCSV(getenv("MODERATOR_ROLES", "admin,moderator")),
			AdminEmails:    lowerAll(splitCSV(getenv("ADMIN_EMAILS", ""))),
		},
		Moderation: ModerationConfig{
			SystemModeratorID: getenv("SYSTEM_MODERATOR_ID", "00000000-0000-0000-0000-000000000000"),
			AnalyzerFailOpen:  getbool("ANALYZER_FAIL_OPEN", true),
			ContentRulesPath:  getenv("CONTENT_RULES_PATH", ""),
			MaxReviewsPerDay:  getint("MAX_REVIEWS_PER_DAY", 10),
			PollInterval:      getdur("ANALYSIS_POLL_INTERVAL", 5*time.Second),
			MaxAttempts:       getint("ANALYSIS_MAX_ATTEMPTS", 5),
			BatchSize:         getint("ANALYSIS_BATCH_SIZE", 20),
			JobLease:          getdur("ANALYSIS_JOB_LEASE", 2*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host: getenv("SMTP_HOST", ""),
			Port: getint("SMTP_PORT", 587),
			User: getenv("SMTP_USER", ""),
			Pass: getenv("SMTP_PASS", ""),
			From: getenv("SMTP_FROM", ""),
			To:   splitCSV(getenv("MODERATOR_ALERT_EMAILS", "")),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-review-backend"),
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
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: postgres, sqlite")
	}
	if cfg.Auth.JWTSecret == "" && !cfg.Auth.DevHeader {
		return cfg, errors.New("JWT_SECRET is required unless AUTH_DEV_HEADER is enabled")
	}
	if strings.TrimSpace(cfg.Moderation.SystemModeratorID) == "" {
		return cfg, errors.New("SYSTEM_MODERATOR_ID must not be empty")
	}
	if cfg.Moderation.MaxReviewsPerDay < 0 {
		return cfg, errors.New("MAX_REVIEWS_PER_DAY must be >= 0")
	}
	if cfg.Moderation.PollInterval <= 0 || cfg.Moderation.JobLease <= 0 {
		return cfg, errors.New("ANALYSIS_POLL_INTERVAL and ANALYSIS_JOB_LEASE must be positive")
	}
	if cfg.Moderation.MaxAttempts < 1 || cfg.Moderation.BatchSize < 1 {
		return cfg, errors.New("ANALYSIS_MAX_ATTEMPTS and ANALYSIS_BATCH_SIZE must be >= 1")
	}
	if cfg.SMTP.Host != "" && (cfg.SMTP.From == "" || len(cfg.SMTP.To) == 0) {
		return cfg, errors.New("SMTP_FROM and MODERATOR_ALERT_EMAILS are required when SMTP_HOST is set")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
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
		if i, err := strconv.Atoi(v); err == nil {
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

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
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
