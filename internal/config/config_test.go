package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"BACKEND_BASE_URL":    "http://backend.local/",
		"PAYMENT_PROVIDER":    "",
		"TAX_RATE":            "",
		"STRIPE_SECRET_KEY":   "",
		"DATABASE_URL":        "",
		"REDIS_URL":           "",
		"ANALYTICS_CACHE_TTL": "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "http://backend.local", cfg.BackendBaseURL)
	require.Equal(t, "0.0825", cfg.TaxRate.String())
	require.Equal(t, "backend", cfg.PaymentProvider)
	require.Equal(t, "usd", cfg.Currency)
	require.Equal(t, time.Minute, cfg.AnalyticsCacheTTL)
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
}

func TestLoadRequiresBackend(t *testing.T) {
	env := baseEnv()
	env["BACKEND_BASE_URL"] = ""
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "BACKEND_BASE_URL")
}

func TestLoadRejectsBadTaxRate(t *testing.T) {
	env := baseEnv()
	env["TAX_RATE"] = "eight percent"
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "TAX_RATE")

	env["TAX_RATE"] = "-0.1"
	_, err = config.LoadForTests(env)
	require.Error(t, err)
}

func TestLoadStripeNeedsKey(t *testing.T) {
	env := baseEnv()
	env["PAYMENT_PROVIDER"] = "stripe"
	_, err := config.LoadForTests(env)
	require.ErrorContains(t, err, "STRIPE_SECRET_KEY")

	env["STRIPE_SECRET_KEY"] = "sk_test_123"
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "stripe", cfg.PaymentProvider)
}

func TestLoadUnknownProvider(t *testing.T) {
	env := baseEnv()
	env["PAYMENT_PROVIDER"] = "paypal"
	_, err := config.LoadForTests(env)
	require.Error(t, err)
}
