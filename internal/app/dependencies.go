// Package app assembles the site API from its parts.
package app

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/catalog"
	"github.com/noah-isme/backend-zemen/internal/config"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/payment"
	"github.com/noah-isme/backend-zemen/internal/ratelimit"
	"github.com/noah-isme/backend-zemen/internal/resilience"
	"github.com/noah-isme/backend-zemen/internal/tasks"
)

// Dependencies enumerates the shared services the router is built from.
// Optional parts may be nil: without Redis there is no cache, idempotency or
// task queue, and without a database the audit trail lives in memory.
type Dependencies struct {
	Config  *config.Config
	Logger  zerolog.Logger
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Backend *backend.Client
	Tasks   tasks.Enqueuer
	Menu    *catalog.Menu
	Payment payment.Provider

	AuditStore   audit.Store
	LimiterStore limiter.Store
	HTTPMetrics  *obs.HTTPMetrics
	Tracing      bool
	Ops          http.Handler
}

// OutboundClient builds the resilient HTTP client used for target, with
// otelhttp instrumentation on the transport.
func OutboundClient(cfg *config.Config, target string, logger zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
		WithTarget(target).
		WithLogger(logger)
	return resilience.HTTPClient{
		Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Breaker:     breaker,
		BaseBackoff: cfg.RetryBase,
		MaxAttempts: cfg.RetryMaxAttempts,
		Jitter:      float64(cfg.RetryJitterPercent) / 100,
		Timeout:     cfg.BackendTimeout,
		Target:      target,
		Logger:      &logger,
	}
}

// NewPaymentProvider selects the provider named by PAYMENT_PROVIDER.
func NewPaymentProvider(cfg *config.Config, client *backend.Client, logger zerolog.Logger) (payment.Provider, error) {
	switch strings.ToLower(cfg.PaymentProvider) {
	case "", "backend":
		return payment.Backend{Client: client}, nil
	case "stripe":
		return payment.Stripe{
			SecretKey: cfg.StripeSecretKey,
			BaseURL:   cfg.StripeBaseURL,
			HTTP:      OutboundClient(cfg, "stripe", logger),
			Logger:    logger,
		}, nil
	case "mock":
		return payment.Mock{}, nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.PaymentProvider)
	}
}

// withDefaults fills the optional dependencies a router cannot run without.
func (d Dependencies) withDefaults() (Dependencies, error) {
	if d.Config == nil {
		return d, fmt.Errorf("app: config is required")
	}
	if d.Backend == nil {
		d.Backend = backend.New(d.Config.BackendBaseURL, OutboundClient(d.Config, "backend", d.Logger))
	}
	if d.Menu == nil {
		d.Menu = catalog.Default()
	}
	if d.Tasks == nil {
		d.Tasks = tasks.Nop{}
	}
	if d.AuditStore == nil {
		if d.DB != nil {
			d.AuditStore = &audit.PostgresStore{DB: d.DB}
		} else {
			d.AuditStore = audit.NewMemoryStore()
		}
	}
	if d.LimiterStore == nil {
		store, err := ratelimit.NewStore(d.Redis, "zemen:limit")
		if err != nil {
			return d, fmt.Errorf("app: limiter store: %w", err)
		}
		d.LimiterStore = store
	}
	if d.Payment == nil {
		p, err := NewPaymentProvider(d.Config, d.Backend, d.Logger)
		if err != nil {
			return d, err
		}
		d.Payment = p
	}
	return d, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
