package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string
	BodyLimitBytes     int64

	BackendBaseURL string
	BackendTimeout time.Duration

	DatabaseURL   string
	DBAutoMigrate bool
	DBMaxConns    int

	RedisURL string

	TaxRate  decimal.Decimal
	Currency string

	PaymentProvider string
	StripeSecretKey string
	StripeBaseURL   string

	IdempotencyTTL    time.Duration
	AnalyticsCacheTTL time.Duration
	AdminVerifyTTL    time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration
	PublicRateLimit string

	RetryBase          time.Duration
	RetryMaxAttempts   int
	RetryJitterPercent int
	CircuitMinRequests int
	CircuitFailureRate float64
	CircuitOpenFor     time.Duration

	StaffEmail        string
	WorkerConcurrency int

	OpsBasicAuthUser string
	OpsBasicAuthHash string
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
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),

		BackendBaseURL: strings.TrimRight(strings.TrimSpace(k.String("BACKEND_BASE_URL")), "/"),
		BackendTimeout: parseDuration(k.String("BACKEND_TIMEOUT"), "10s"),

		DatabaseURL:   strings.TrimSpace(k.String("DATABASE_URL")),
		DBAutoMigrate: parseBool(k.String("DB_AUTO_MIGRATE"), true),
		DBMaxConns:    parseInt(k.String("DB_MAX_CONNS"), 0),

		RedisURL: strings.TrimSpace(k.String("REDIS_URL")),

		Currency: strings.ToLower(valueOrDefault(k.String("CURRENCY"), "usd")),

		PaymentProvider: strings.ToLower(valueOrDefault(k.String("PAYMENT_PROVIDER"), "backend")),
		StripeSecretKey: strings.TrimSpace(k.String("STRIPE_SECRET_KEY")),
		StripeBaseURL:   valueOrDefault(k.String("STRIPE_BASE_URL"), "https://api.stripe.com"),

		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		AnalyticsCacheTTL: parseDuration(k.String("ANALYTICS_CACHE_TTL"), "60s"),
		AdminVerifyTTL:    parseDuration(k.String("ADMIN_VERIFY_TTL"), "5m"),

		LoginRateLimit:  parseInt(k.String("LOGIN_RATE_LIMIT"), 5),
		LoginRateWindow: parseDuration(k.String("LOGIN_RATE_WINDOW"), "15m"),
		PublicRateLimit: valueOrDefault(k.String("PUBLIC_RATE_LIMIT"), "30-M"),

		RetryBase:          parseDuration(k.String("RETRY_BASE"), "200ms"),
		RetryMaxAttempts:   parseInt(k.String("RETRY_MAX_ATTEMPTS"), 3),
		RetryJitterPercent: parseInt(k.String("RETRY_JITTER_PERCENT"), 20),
		CircuitMinRequests: parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
		CircuitFailureRate: parseFloat(k.String("CIRCUIT_FAILURE_RATE"), 0.5),
		CircuitOpenFor:     parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		StaffEmail:        strings.TrimSpace(k.String("STAFF_EMAIL")),
		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),

		OpsBasicAuthUser: strings.TrimSpace(k.String("OPS_BASIC_AUTH_USER")),
		OpsBasicAuthHash: strings.TrimSpace(k.String("OPS_BASIC_AUTH_HASH")),
	}

	rate, err := decimal.NewFromString(valueOrDefault(k.String("TAX_RATE"), "0.0825"))
	if err != nil {
		return nil, fmt.Errorf("TAX_RATE: %w", err)
	}
	if rate.IsNegative() {
		return nil, errors.New("TAX_RATE must not be negative")
	}
	cfg.TaxRate = rate

	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BackendBaseURL); err != nil {
		return nil, fmt.Errorf("BACKEND_BASE_URL: %w", err)
	}
	switch cfg.PaymentProvider {
	case "backend", "mock":
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, errors.New("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER=stripe")
		}
	default:
		return nil, fmt.Errorf("unsupported PAYMENT_PROVIDER %q", cfg.PaymentProvider)
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
		return strings.TrimSpace(value)
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
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
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
