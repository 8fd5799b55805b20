// Package payment opens payment intents for the site checkout. Confirmation
// happens in the browser against the provider; the API only hands out the
// client secret.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// IntentRequest captures the information required to open a payment intent with a provider.
type IntentRequest struct {
	Amount         pricing.Money
	Currency       string
	IdempotencyKey string
	Description    string
}

// IntentResponse is what a provider returns for a new intent.
type IntentResponse struct {
	Provider     string
	ID           string
	ClientSecret string
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error)
}

// IntentCreator is the backend call that opens an intent on the backend's
// own Stripe account.
type IntentCreator interface {
	CreatePaymentIntent(ctx context.Context, amount pricing.Money) (string, error)
}

// Backend delegates intent creation to the order backend.
type Backend struct {
	Client IntentCreator
}

// Name implements Provider.
func (Backend) Name() string { return "backend" }

// CreateIntent implements Provider.
func (b Backend) CreateIntent(ctx context.Context, req IntentRequest) (IntentResponse, error) {
	secret, err := b.Client.CreatePaymentIntent(ctx, req.Amount)
	if err != nil {
		return IntentResponse{}, err
	}
	return IntentResponse{Provider: b.Name(), ID: intentID(secret), ClientSecret: secret}, nil
}

// Mock issues fake client secrets for local development.
type Mock struct{}

// Name implements Provider.
func (Mock) Name() string { return "mock" }

// CreateIntent implements Provider.
func (m Mock) CreateIntent(_ context.Context, req IntentRequest) (IntentResponse, error) {
	id := fmt.Sprintf("pi_mock_%d_%s", req.Amount, uuid.NewString()[:8])
	return IntentResponse{Provider: m.Name(), ID: id, ClientSecret: id + "_secret_" + uuid.NewString()[:8]}, nil
}

// intentID recovers the intent id from a Stripe client secret of the form
// "<id>_secret_<nonce>".
func intentID(secret string) string {
	id, _, ok := strings.Cut(secret, "_secret_")
	if !ok {
		return ""
	}
	return id
}
