// Package health serves liveness and readiness checks.
package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-zemen/internal/common"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness. The API clears it when shutdown begins so load
// balancers drain traffic before the listener closes.
func SetReady(v bool) { ready.Store(v) }

// Check checks one dependency.
type Check struct {
	Name    string
	Timeout time.Duration
	Ping    func(ctx context.Context) error
}

// PostgresCheck pings the pool.
func PostgresCheck(pool *pgxpool.Pool) Check {
	return Check{Name: "db", Timeout: 500 * time.Millisecond, Ping: pool.Ping}
}

// RedisCheck pings the client.
func RedisCheck(rdb *redis.Client) Check {
	return Check{Name: "redis", Timeout: 300 * time.Millisecond, Ping: func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}}
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checks []Check
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency checks. Optional dependencies
// that are not configured have no check.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for _, p := range h.Checks {
		if err := ping(r.Context(), p); err != nil {
			status[p.Name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[p.Name] = "ok"
	}
	common.JSON(w, code, status)
}

func ping(ctx context.Context, p Check) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx)
}
