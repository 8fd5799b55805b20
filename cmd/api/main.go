package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zemen/internal/app"
	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/config"
	"github.com/noah-isme/backend-zemen/internal/health"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "zemen")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "zemen-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool := initDatabase(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}
	redisClient := initRedis(ctx, cfg, logger, metricsEnabled)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	var enqueuer tasks.Enqueuer = tasks.Nop{}
	if cfg.RedisURL != "" {
		connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse redis url for tasks")
		}
		client := asynq.NewClient(connOpt)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close task client")
			}
		}()
		enqueuer = tasks.AsynqEnqueuer{Client: client}
	}

	deps := app.Dependencies{
		Config:  cfg,
		Logger:  logger,
		DB:      pool,
		Redis:   redisClient,
		Backend: backend.New(cfg.BackendBaseURL, app.OutboundClient(cfg, "backend", logger)),
		Tasks:   enqueuer,
		Tracing: tracingEnabled,
	}
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		deps.HTTPMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}
	if cfg.OpsBasicAuthUser != "" {
		deps.Ops = app.OpsHandler(app.OpsAuth{
			User:   cfg.OpsBasicAuthUser,
			Hash:   cfg.OpsBasicAuthHash,
			Logger: logger,
		}, metricsEnabled, envBool("OBS_ENABLE_PPROF", true))
	}

	handler, err := app.NewRouter(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("build router")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("backend", cfg.BackendBaseURL).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-sigCtx.Done():
	}

	health.SetReady(false)
	drain := envDurationMillis("SHUTDOWN_DRAIN_MS", 2000)
	logger.Info().Dur("drain", drain).Msg("shutdown requested")
	time.Sleep(drain)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}

func initDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, audit trail kept in memory")
		return nil
	}
	if cfg.DBAutoMigrate {
		if err := audit.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate database")
		}
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "zemen-api"
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.DBMaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func initRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics bool) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, caching, idempotency and background tasks disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(fallback) * time.Millisecond
}
