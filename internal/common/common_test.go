package common_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/common"
)

type upstreamErr struct {
	status int
}

func (u upstreamErr) Error() string           { return "upstream" }
func (u upstreamErr) UpstreamStatus() int     { return u.status }
func (u upstreamErr) UpstreamCode() string    { return "" }
func (u upstreamErr) UpstreamMessage() string { return "upstream said no" }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorBody {
	t.Helper()
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestWriteErrorMapsStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{common.BadRequest("BAD_REQUEST", "nope"), http.StatusBadRequest, "BAD_REQUEST"},
		{fmt.Errorf("wrapped: %w", upstreamErr{status: 404}), http.StatusNotFound, "UPSTREAM_ERROR"},
		{upstreamErr{status: 503}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{upstreamErr{status: 0}, http.StatusBadGateway, "UPSTREAM_ERROR"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		common.WriteError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code)
		require.Equal(t, tc.code, decodeError(t, rec).Code)
	}
}

func TestValidateStructReportsJSONFields(t *testing.T) {
	type payload struct {
		Name  string `json:"name" validate:"required"`
		Count int    `json:"count" validate:"gte=1"`
	}
	err := common.ValidateStruct(common.NewValidator(), payload{})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	details := appErr.Details.([]common.FieldError)
	require.Len(t, details, 2)
	require.Equal(t, "name", details[0].Field)
	require.Equal(t, "count", details[1].Field)
	require.Equal(t, "gte", details[1].Rule)

	require.NoError(t, common.ValidateStruct(common.NewValidator(), payload{Name: "x", Count: 1}))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := common.DecodeJSON(req, &dst)
	require.True(t, common.IsAppError(err))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	require.Error(t, common.DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, common.DecodeJSON(req, &dst))
	require.Equal(t, "a", dst.Name)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	calls := 0
	h := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		common.Data(w, http.StatusCreated, map[string]int{"call": calls})
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	first := do()
	second := do()
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdempotencyPendingKeyConflicts(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set("Idempotency-Key", "k")
	keys := mr.Keys()
	require.Empty(t, keys)

	// simulate an in-flight request holding the key
	h.ServeHTTP(httptest.NewRecorder(), req)
	for _, k := range mr.Keys() {
		require.NoError(t, rdb.Set(context.Background(), k, "pending", time.Minute).Err())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	var bodies []string
	h := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		bodies = append(bodies, fmt.Sprint(in["items"]))
		common.Data(w, http.StatusCreated, in)
	}))
	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "order-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusCreated, do(`{"items":{"Kitfo":1}}`).Code)
	require.Equal(t, http.StatusCreated, do(`{"items":{"Kitfo":1}}`).Code)

	rec := do(`{"items":{"Kitfo":2}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	require.Empty(t, rec.Header().Get("Idempotent-Replay"))
	require.Len(t, bodies, 1, "the handler ran only for the first request")
}

func TestIdempotencyPendingKeyWithDifferentBody(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	release := make(chan struct{})
	started := make(chan struct{})
	h := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))
	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "k")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		do(`{"a":1}`)
	}()
	<-started

	require.Equal(t, http.StatusConflict, do(`{"a":1}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, do(`{"a":2}`).Code)
	close(release)
	<-done
}

func TestIdempotencyFailureReleasesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	calls := 0
	h := common.Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "down", nil)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set("Idempotency-Key", "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	require.Equal(t, 2, calls)
}

func TestAdminSessionContext(t *testing.T) {
	_, ok := common.AdminToken(context.Background())
	require.False(t, ok)
	ctx := common.WithAdminSession(context.Background(), "tok", "admin")
	tok, ok := common.AdminToken(ctx)
	require.True(t, ok)
	require.Equal(t, "tok", tok)
	user, ok := common.AdminUsername(ctx)
	require.True(t, ok)
	require.Equal(t, "admin", user)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "10.0.0.1", common.ClientIP(req))
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	require.Equal(t, "1.2.3.4", common.ClientIP(req))
}
