package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/config"
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
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the worker")
	}
	connOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handlers := &tasks.Handlers{
		Mail:       common.LogEmailSender{Logger: logger.With().Str("sender", "log").Logger()},
		StaffEmail: cfg.StaffEmail,
		Logger:     logger,
	}
	mux := asynq.NewServeMux()
	handlers.Register(mux)

	srv := asynq.NewServer(connOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      asynqLogger{l: logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("type", task.Type()).Msg("task failed")
		}),
	})

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

// asynqLogger routes asynq's logs through zerolog.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
