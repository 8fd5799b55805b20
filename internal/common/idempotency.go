package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idemPending = "pending"

// Idem provides an Idempotency-Key middleware backed by Redis. The first
// request for a key runs the handler and its 2xx response is stored for TTL;
// later requests with the same key and body receive the stored response. A key
// whose first request is still running yields 409; a key reused with a
// different body yields 422.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

type storedResponse struct {
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	Fingerprint string          `json:"fingerprint"`
}

func hashKey(r *http.Request, key string) string {
	return "idem:" + Sha256Hex(r.Method+" "+r.URL.Path+" "+key)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
				return
			}
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read request body", nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(payload))
		fingerprint := Sha256Hex(string(payload))

		ctx := r.Context()
		key := hashKey(r, header)
		ok, err := i.R.SetNX(ctx, key, idemPending+":"+fingerprint, i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			i.replay(ctx, w, key, fingerprint)
			return
		}

		rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
		completed := false
		defer func() {
			if !completed {
				_ = i.R.Del(context.Background(), key).Err()
			}
		}()
		next.ServeHTTP(rec, r)
		completed = true

		if rec.status < 200 || rec.status >= 300 {
			// failures may be retried with the same key
			_ = i.R.Del(context.Background(), key).Err()
			return
		}
		body := bytes.TrimSpace(rec.buf.Bytes())
		if len(body) == 0 {
			body = []byte("null")
		}
		data, err := json.Marshal(storedResponse{Status: rec.status, Body: json.RawMessage(body), Fingerprint: fingerprint})
		if err != nil {
			return
		}
		_ = i.R.Set(context.Background(), key, data, i.TTL).Err()
	})
}

func (i Idem) replay(ctx context.Context, w http.ResponseWriter, key, fingerprint string) {
	raw, err := i.R.Get(ctx, key).Result()
	if err != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request in progress", nil)
		return
	}
	if rest, ok := strings.CutPrefix(raw, idemPending); ok {
		if held, found := strings.CutPrefix(rest, ":"); found && held != fingerprint {
			keyReused(w)
			return
		}
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request in progress", nil)
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
		return
	}
	if stored.Fingerprint != fingerprint {
		keyReused(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotent-Replay", "true")
	w.WriteHeader(stored.Status)
	_, _ = io.Copy(w, bytes.NewReader(stored.Body))
}

func keyReused(w http.ResponseWriter) {
	JSONError(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key was already used with a different request body", nil)
}

type bodyRecorder struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (b *bodyRecorder) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bodyRecorder) Write(p []byte) (int, error) {
	b.buf.Write(p)
	return b.ResponseWriter.Write(p)
}
