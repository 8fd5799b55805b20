package ratelimit

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-zemen/internal/common"
)

// NewStore returns a Redis limiter store, or an in-process store when rdb is nil.
func NewStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: prefix}), nil
	}
	return sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// PerIP builds a fixed-window per-client-IP middleware from a formatted rate
// such as "30-M". Store failures are logged and reported as 503.
func PerIP(formatted string, store limiter.Store, logger zerolog.Logger) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	lim := limiter.New(store, rate)
	mw := stdlib.NewMiddleware(lim,
		stdlib.WithKeyGetter(common.ClientIP),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().Err(err).Str("path", r.URL.Path).Msg("rate limiter store failed")
			common.JSONError(w, http.StatusServiceUnavailable, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable", nil)
		}),
	)
	return mw.Handler, nil
}
