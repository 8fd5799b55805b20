package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/backend-zemen/internal/analytics"
	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/auth"
	"github.com/noah-isme/backend-zemen/internal/cart"
	"github.com/noah-isme/backend-zemen/internal/catalog"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/health"
	"github.com/noah-isme/backend-zemen/internal/lock"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/order"
	"github.com/noah-isme/backend-zemen/internal/payment"
	"github.com/noah-isme/backend-zemen/internal/ratelimit"
	"github.com/noah-isme/backend-zemen/internal/reservation"
	"github.com/noah-isme/backend-zemen/internal/security"
)

// NewRouter builds the HTTP handler for the site API.
func NewRouter(deps Dependencies) (http.Handler, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	cfg := d.Config
	logger := d.Logger
	cat := d.Menu.Catalog()
	validate := order.NewValidator()

	auditSvc := &audit.Service{Store: d.AuditStore, Enabled: true}
	auditRec := audit.HTTPRecorder{Service: auditSvc, OnError: func(err error) {
		logger.Error().Err(err).Msg("audit admin read")
	}}

	authSvc := &auth.Service{Backend: d.Backend, R: d.Redis, VerifyTTL: cfg.AdminVerifyTTL}
	authHandler := &auth.Handler{Service: authSvc, Audit: auditSvc, Validator: validate}
	requireAdmin := auth.Middleware{Service: authSvc}.RequireAdmin

	menuHandler := catalog.NewHandler(catalog.HandlerConfig{Menu: d.Menu})
	cartHandler := &cart.Handler{Svc: &cart.Service{Catalog: cat, TaxRate: cfg.TaxRate, Currency: cfg.Currency}}
	orderHandler := &order.Handler{
		Svc:       &order.Service{Backend: d.Backend, Catalog: cat, TaxRate: cfg.TaxRate, Tasks: d.Tasks},
		Audit:     auditSvc,
		Validator: validate,
	}
	reservationHandler := &reservation.Handler{
		Svc:       &reservation.Service{Backend: d.Backend, Tasks: d.Tasks},
		Audit:     auditSvc,
		Validator: validate,
	}
	paymentHandler := &payment.Handler{
		Svc:   &payment.Service{Provider: d.Payment, Catalog: cat, TaxRate: cfg.TaxRate, Currency: cfg.Currency},
		Audit: auditSvc,
	}
	analyticsSvc := &analytics.Service{Source: d.Backend, R: d.Redis, TTL: cfg.AnalyticsCacheTTL}
	if d.Redis != nil {
		analyticsSvc.Lock = &lock.Locker{R: d.Redis}
	}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc}
	auditHandler := audit.Handler{Store: d.AuditStore}

	var checks []health.Check
	if d.DB != nil {
		checks = append(checks, health.PostgresCheck(d.DB))
	}
	if d.Redis != nil {
		checks = append(checks, health.RedisCheck(d.Redis))
	}
	healthHandler := health.Handler{Checks: checks}

	publicLimit, err := ratelimit.PerIP(cfg.PublicRateLimit, d.LimiterStore, logger)
	if err != nil {
		return nil, err
	}
	loginLimit := ratelimit.Handler{
		Config: ratelimit.Config{
			Key:    ratelimit.ByIPAndJSONField("login", "username", 4<<10),
			Window: durationOr(cfg.LoginRateWindow, 15*time.Minute),
			Max:    cfg.LoginRateLimit,
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("login rate limiter unavailable") },
	}
	if d.Redis != nil {
		loginLimit.Limiter = ratelimit.SlidingWindow{Client: d.Redis, Prefix: "zemen:ratelimit:"}
	}
	idem := common.Idem{R: d.Redis, TTL: durationOr(cfg.IdempotencyTTL, 24*time.Hour)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.CORS(allowedOrigins(cfg.CORSAllowedOrigins)))
	r.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	if d.Ops != nil {
		r.Handle("/metrics", d.Ops)
		r.Handle("/debug/pprof/*", d.Ops)
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/menu", menuHandler.Menu)
		v.Post("/cart/quote", cartHandler.Quote)
		v.Post("/cart/actions", cartHandler.Actions)

		v.Group(func(w chi.Router) {
			w.Use(publicLimit)
			w.Use(idem.Middleware)
			w.Post("/orders", orderHandler.Submit)
			w.Post("/reservations", reservationHandler.Create)
			w.Post("/payments/intent", paymentHandler.Intent)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.With(loginLimit.Middleware).Post("/login", authHandler.Login)

			admin.Group(func(a chi.Router) {
				a.Use(requireAdmin)
				a.Get("/profile", authHandler.Profile)
				a.Get("/dashboard", analyticsHandler.Dashboard)
				a.With(auditRec.Middleware(audit.HTTPConfig{Action: "admin.orders.viewed", ResourceType: "order"})).
					Get("/orders", orderHandler.List)
				a.With(auditRec.Middleware(audit.HTTPConfig{Action: "admin.reservations.viewed", ResourceType: "reservation"})).
					Get("/reservations", reservationHandler.List)
				a.Patch("/reservations/{id}", reservationHandler.UpdateStatus)
				a.Get("/audit", auditHandler.List)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r, nil
}

func allowedOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}
