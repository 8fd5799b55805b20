package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("zemen", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsReuseRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("zemen", nil, registry)
	second := obs.NewHTTPMetrics("zemen", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
}

func TestRequestLoggerUsesRoutePatternAndAdmin(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/admin/reservations/{id}", func(w http.ResponseWriter, r *http.Request) {
		obs.NoteAdmin(r.Context(), "manager")
		obs.Logger(r).Info().Msg("inside")
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/reservations/7", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &entry))
	require.Equal(t, "/api/v1/admin/reservations/{id}", entry["route"])
	require.Equal(t, float64(http.StatusAccepted), entry["status"])
	require.Equal(t, "manager", entry["admin"])
}

func TestParseBucketsCSV(t *testing.T) {
	require.Equal(t, []float64{5, 10.5}, obs.ParseBucketsCSV("5, x, -1, 10.5"))
	require.Nil(t, obs.ParseBucketsCSV(" "))
}
