package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string

	LogFormat string
	LogLevel  string

	MetricsNamespace string
	TracingEnabled   bool
	TracingEndpoint  string
	TracingRatio     float64

	AdminPasswordHash string
	AdminSessionTTL   time.Duration
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	SlackWebhookURL     string
	NotifyTimeout       time.Duration
	NotifyMaxRetry      int
	WorkerConcurrency   int

	UploadSigningKey string
	UploadBaseDir    string
	UploadURLTTL     time.Duration

	CartTTL         time.Duration
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	OrderRateLimit      int
	CustomReqRateLimit  int
	AdminLoginRateLimit int
	PresignRateLimit    int
	RateLimitWindow     time.Duration

	MaxBodyBytes int64

	MigrationsDir string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		MetricsNamespace: valueOrDefault(k.String("METRICS_NAMESPACE"), "kaos"),
		TracingEnabled:   parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint:  strings.TrimSpace(k.String("TRACING_ENDPOINT")),
		TracingRatio:     parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),

		AdminPasswordHash: k.String("ADMIN_PASSWORD_HASH"),
		AdminSessionTTL:   parseDuration(k.String("ADMIN_SESSION_TTL"), "8h"),
		CookieDomain:      strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:      parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:    parseSameSite(k.String("COOKIE_SAMESITE")),

		SlackWebhookURL:   k.String("SLACK_WEBHOOK_URL"),
		NotifyTimeout:     parseDuration(k.String("NOTIFY_TIMEOUT"), "10s"),
		NotifyMaxRetry:    parseInt(k.String("NOTIFY_MAX_RETRY"), 5),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 4),

		UploadSigningKey: k.String("UPLOAD_SIGNING_KEY"),
		UploadBaseDir:    valueOrDefault(k.String("UPLOAD_BASE_DIR"), "data/uploads"),
		UploadURLTTL:     parseDuration(k.String("UPLOAD_URL_TTL"), "15m"),

		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		OrderRateLimit:      parseInt(k.String("RATE_LIMIT_ORDERS"), 5),
		CustomReqRateLimit:  parseInt(k.String("RATE_LIMIT_CUSTOM_REQUESTS"), 3),
		AdminLoginRateLimit: parseInt(k.String("RATE_LIMIT_ADMIN_LOGIN"), 5),
		PresignRateLimit:    parseInt(k.String("RATE_LIMIT_PRESIGN"), 10),
		RateLimitWindow:     parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),

		MaxBodyBytes: int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),

		MigrationsDir: valueOrDefault(k.String("MIGRATIONS_DIR"), "migrations"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.AdminPasswordHash == "" {
		return nil, errors.New("ADMIN_PASSWORD_HASH is required")
	}
	if cfg.UploadSigningKey == "" {
		return nil, errors.New("UPLOAD_SIGNING_KEY is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// LoadForTests allows tests to override environment variables without touching
// the real environment permanently.
func LoadForTests(envVars map[string]string) (*Config, error) {
	original := make(map[string]string, len(envVars))
	for key := range envVars {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envVars[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
