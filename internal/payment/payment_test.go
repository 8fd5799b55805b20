package payment_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/catalog"
	"github.com/noah-isme/backend-zemen/internal/payment"
	"github.com/noah-isme/backend-zemen/internal/pricing"
	"github.com/noah-isme/backend-zemen/internal/resilience"
)

type fakeCreator struct {
	amounts []pricing.Money
	err     error
}

func (f *fakeCreator) CreatePaymentIntent(_ context.Context, amount pricing.Money) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.amounts = append(f.amounts, amount)
	return "pi_123_secret_abc", nil
}

func newHandler(p payment.Provider) (*payment.Handler, *audit.MemoryStore) {
	store := audit.NewMemoryStore()
	return &payment.Handler{
		Svc: &payment.Service{
			Provider: p,
			Catalog:  catalog.Default().Catalog(),
			TaxRate:  pricing.DefaultTaxRate,
			Currency: "usd",
		},
		Audit: &audit.Service{Store: store, Enabled: true},
	}, store
}

func post(h *payment.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.Intent(rec, httptest.NewRequest(http.MethodPost, "/api/v1/payments/intent", strings.NewReader(body)))
	return rec
}

func TestIntentWithAmount(t *testing.T) {
	creator := &fakeCreator{}
	h, store := newHandler(payment.Backend{Client: creator})
	rec := post(h, `{"amount":2599}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"data":{"client_secret":"pi_123_secret_abc","amount":2599,"currency":"usd","provider":"backend"}}`, rec.Body.String())
	require.Equal(t, []pricing.Money{2599}, creator.amounts)

	entries, _, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "payment.intent_requested", entries[0].Action)
}

func TestIntentPricesItems(t *testing.T) {
	creator := &fakeCreator{}
	h, _ := newHandler(payment.Backend{Client: creator})
	rec := post(h, `{"amount":1,"items":{"Kitfo":2,"Tej":1}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, []pricing.Money{4111}, creator.amounts)

	rec = post(h, `{"items":{"Baklava":1}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "UNKNOWN_ITEM")
}

func TestIntentRejectsNonPositiveAmount(t *testing.T) {
	creator := &fakeCreator{}
	h, store := newHandler(payment.Backend{Client: creator})
	for _, body := range []string{`{"amount":0}`, `{"amount":-5}`, `{}`, `{"items":{"Kitfo":0}}`} {
		rec := post(h, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.Contains(t, rec.Body.String(), "INVALID_AMOUNT")
	}
	require.Empty(t, creator.amounts)
	_, total, _ := store.List(context.Background(), 10, 0)
	require.Zero(t, total)
}

func TestIntentRejectsOversizedQuantities(t *testing.T) {
	creator := &fakeCreator{}
	h, _ := newHandler(payment.Backend{Client: creator})
	for _, body := range []string{
		`{"items":{"Kitfo":3116784042491601337}}`,
		`{"items":{"Kitfo":1,"Tej":1000}}`,
	} {
		rec := post(h, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.Contains(t, rec.Body.String(), "INVALID_QUANTITY")
	}

	rec := post(h, `{"amount":1000000000000000001}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_AMOUNT")
	require.Empty(t, creator.amounts)
}

func TestIntentPassesBackendErrorsThrough(t *testing.T) {
	creator := &fakeCreator{err: &backend.Error{Op: "create_intent", Status: 500, Code: "BACKEND_ERROR", Message: "stripe down"}}
	h, _ := newHandler(payment.Backend{Client: creator})
	rec := post(h, `{"amount":100}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "stripe down")
}

func TestStripeProvider(t *testing.T) {
	var form url.Values
	var headers http.Header
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payment_intents", r.URL.Path)
		method = r.Method
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err = url.ParseQuery(string(raw))
		require.NoError(t, err)
		headers = r.Header.Clone()
		if form.Get("amount") == "402" {
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = io.WriteString(w, `{"error":{"type":"card_error","message":"Your card was declined."}}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"pi_9","client_secret":"pi_9_secret_x"}`)
	}))
	t.Cleanup(srv.Close)

	p := payment.Stripe{
		SecretKey: "sk_test_1",
		BaseURL:   srv.URL,
		HTTP:      resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond},
	}
	resp, err := p.CreateIntent(context.Background(), payment.IntentRequest{Amount: 1999, Currency: "USD", IdempotencyKey: "k-1"})
	require.NoError(t, err)
	require.Equal(t, payment.IntentResponse{Provider: "stripe", ID: "pi_9", ClientSecret: "pi_9_secret_x"}, resp)
	require.Equal(t, "1999", form.Get("amount"))
	require.Equal(t, "usd", form.Get("currency"))
	require.Equal(t, "true", form.Get("automatic_payment_methods[enabled]"))
	require.Equal(t, http.MethodPost, method)
	require.Equal(t, "application/x-www-form-urlencoded", mediaType(headers.Get("Content-Type")))
	require.Equal(t, "Bearer sk_test_1", headers.Get("Authorization"))
	require.Equal(t, "k-1", headers.Get("Idempotency-Key"))

	_, err = p.CreateIntent(context.Background(), payment.IntentRequest{Amount: 5, Currency: "usd"})
	require.NoError(t, err)
	require.Len(t, headers.Get("Idempotency-Key"), 36)

	_, err = p.CreateIntent(context.Background(), payment.IntentRequest{Amount: 402, Currency: "usd"})
	var pe *payment.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, http.StatusPaymentRequired, pe.Status)
	require.Equal(t, "PAYMENT_REJECTED", pe.Code)
	require.Equal(t, "Your card was declined.", pe.Message)
}

func TestStripeProviderMapsOutagesToBadGateway(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer sk_live_ok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"type":"api_error","message":"Something went wrong"}}`)
	}))
	t.Cleanup(srv.Close)

	for _, key := range []string{"sk_live_bad", "sk_live_ok"} {
		calls = 0
		p := payment.Stripe{
			SecretKey: key,
			BaseURL:   srv.URL,
			HTTP:      resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 3, BaseBackoff: time.Millisecond},
		}
		_, err := p.CreateIntent(context.Background(), payment.IntentRequest{Amount: 100, Currency: "usd"})
		var pe *payment.ProviderError
		require.True(t, errors.As(err, &pe), key)
		require.Equal(t, http.StatusBadGateway, pe.Status, key)
		require.Equal(t, "PAYMENT_PROVIDER_ERROR", pe.Code, key)
		require.Equal(t, 1, calls, "payment intents are never retried")
	}

	p := payment.Stripe{SecretKey: "sk", BaseURL: "http://127.0.0.1:1", HTTP: resilience.HTTPClient{Client: &http.Client{}}}
	_, err := p.CreateIntent(context.Background(), payment.IntentRequest{Amount: 100, Currency: "usd"})
	var pe *payment.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, "PAYMENT_PROVIDER_UNAVAILABLE", pe.Code)
	require.Zero(t, pe.Status)
}

func mediaType(v string) string {
	mt, _, _ := strings.Cut(v, ";")
	return strings.TrimSpace(mt)
}

func TestMockProvider(t *testing.T) {
	h, _ := newHandler(payment.Mock{})
	rec := post(h, `{"amount":500}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"provider":"mock"`)
	require.Contains(t, rec.Body.String(), "_secret_")
}
