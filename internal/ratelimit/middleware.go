package ratelimit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/backend-zemen/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler. Limiter
// failures let the request through.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil || h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limitValue := h.Config.Max
		if limitValue < 0 {
			limitValue = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limitValue))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ByIP keys requests by client IP under scope.
func ByIP(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + common.ClientIP(r)
	}
}

// ByIPAndJSONField keys requests by client IP and the lowercased value of a
// top-level string field of the JSON body. The body is restored for the next
// handler; at most limit bytes are inspected.
func ByIPAndJSONField(scope, field string, limit int64) func(*http.Request) string {
	return func(r *http.Request) string {
		key := scope + ":" + common.ClientIP(r)
		if r.Body == nil || r.Body == http.NoBody {
			return key
		}
		data, err := io.ReadAll(io.LimitReader(r.Body, limit))
		rest := r.Body
		r.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(data), rest), rest}
		if err != nil {
			return key
		}
		var doc map[string]json.RawMessage
		if json.Unmarshal(data, &doc) != nil {
			return key
		}
		var value string
		if json.Unmarshal(doc[field], &value) != nil {
			return key
		}
		return key + ":" + strings.ToLower(strings.TrimSpace(value))
	}
}
