package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuote(t *testing.T) {
	out, err := run(t, "quote", "--tax-rate", "0.0825", "Kitfo=2", "Tej=1")
	require.NoError(t, err)
	require.Contains(t, out, "subtotal $37.98")
	require.Contains(t, out, "tax      $3.13")
	require.Contains(t, out, "total    $41.11")
	require.Less(t, strings.Index(out, "Kitfo"), strings.Index(out, "Tej"))
}

func TestQuoteRejectsBadInput(t *testing.T) {
	_, err := run(t, "quote", "Kitfo")
	require.ErrorContains(t, err, "NAME=QTY")

	_, err = run(t, "quote", "Kitfo=-1")
	require.ErrorContains(t, err, "invalid quantity")

	_, err = run(t, "quote", "Kitfo=1000")
	require.ErrorContains(t, err, "quantity exceeds maximum")

	_, err = run(t, "quote", "Pizza=1")
	require.ErrorContains(t, err, "unknown items: Pizza")
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "hash-password", "s3cret")
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("s3cret", strings.TrimSpace(out))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDashboard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Token tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id": 1, "phone": "1", "total_price": "15.14", "created_at": "2025-03-01T10:00:00Z",
			"items": [{"item_name": "Kitfo", "quantity": 1, "price_per_item": "13.99"}]}]`)
	}))
	defer srv.Close()

	out, err := run(t, "dashboard", "--backend", srv.URL, "--token", "tok", "--tz", "UTC")
	require.NoError(t, err)
	require.Contains(t, out, `"total_orders": 1`)
	require.Contains(t, out, `"2025-03-01"`)

	_, err = run(t, "dashboard", "--backend", srv.URL, "--token", "")
	require.ErrorContains(t, err, "--token is required")
}
