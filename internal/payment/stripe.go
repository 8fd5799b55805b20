package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Doer executes HTTP requests. resilience.HTTPClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Stripe creates intents directly against the Stripe API. Requests go through
// HTTP so they share the breaker and timeouts of other outbound calls; the SDK
// never retries on its own.
type Stripe struct {
	SecretKey string
	BaseURL   string
	HTTP      Doer
	Logger    zerolog.Logger
}

// Name implements Provider.
func (Stripe) Name() string { return "stripe" }

// ProviderError is a non-2xx answer from a payment provider.
type ProviderError struct {
	Provider string
	Status   int
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %d %s", e.Provider, e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UpstreamStatus implements common.UpstreamError.
func (e *ProviderError) UpstreamStatus() int { return e.Status }

// UpstreamCode implements common.UpstreamError.
func (e *ProviderError) UpstreamCode() string { return e.Code }

// UpstreamMessage implements common.UpstreamError.
func (e *ProviderError) UpstreamMessage() string { return e.Message }

// doerTransport adapts a Doer to the RoundTripper the SDK expects.
type doerTransport struct{ d Doer }

func (t doerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.d.Do(req.Context(), req)
}

// stripeLogger routes SDK logs through zerolog.
type stripeLogger struct{ l zerolog.Logger }

func (s stripeLogger) Debugf(format string, v ...interface{}) { s.l.Debug().Msgf(format, v...) }
func (s stripeLogger) Infof(format string, v ...interface{})  { s.l.Debug().Msgf(format, v...) }
func (s stripeLogger) Warnf(format string, v ...interface{})  { s.l.Warn().Msgf(format, v...) }
func (s stripeLogger) Errorf(format string, v ...interface{}) { s.l.Error().Msgf(format, v...) }

func (s Stripe) api() *client.API {
	cfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Transport: doerTransport{d: s.HTTP}},
		LeveledLogger:     stripeLogger{l: s.Logger.With().Str("provider", "stripe").Logger()},
		MaxNetworkRetries: stripe.Int64(0),
		EnableTelemetry:   stripe.Bool(false),
	}
	if base := strings.TrimRight(s.BaseURL, "/"); base != "" {
		cfg.URL = stripe.String(base)
	}
	sc := &client.API{}
	sc.Init(s.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	return sc
}

// CreateIntent implements Provider through the PaymentIntents API.
func (s Stripe) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	if s.HTTP == nil {
		return IntentResponse{}, &ProviderError{Provider: s.Name(), Code: "PAYMENT_NOT_CONFIGURED", Message: "stripe client not configured"}
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	params.SetIdempotencyKey(key)
	params.Context = ctx

	pi, err := s.api().PaymentIntents.New(params)
	if err != nil {
		return IntentResponse{}, stripeError(err)
	}
	if pi.ClientSecret == "" {
		return IntentResponse{}, &ProviderError{Provider: s.Name(), Status: http.StatusBadGateway, Code: "PAYMENT_PROVIDER_ERROR", Message: "malformed provider response"}
	}
	return IntentResponse{Provider: s.Name(), ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func stripeError(err error) *ProviderError {
	var se *stripe.Error
	if !errors.As(err, &se) || se.HTTPStatusCode == 0 {
		return &ProviderError{Provider: "stripe", Code: "PAYMENT_PROVIDER_UNAVAILABLE", Message: "payment provider unavailable", Err: err}
	}
	status := se.HTTPStatusCode
	e := &ProviderError{Provider: "stripe", Status: status, Message: se.Msg, Code: "PAYMENT_REJECTED", Err: err}
	if e.Message == "" {
		e.Message = strings.ToLower(http.StatusText(status))
	}
	if status == http.StatusUnauthorized || status >= 500 {
		// a bad API key is our misconfiguration, not the caller's
		e.Status = http.StatusBadGateway
		e.Code = "PAYMENT_PROVIDER_ERROR"
	}
	return e
}
