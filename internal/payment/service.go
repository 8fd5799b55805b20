package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// ErrInvalidAmount is returned when the intent amount is not positive.
var ErrInvalidAmount = common.BadRequest("INVALID_AMOUNT", "amount must be greater than zero")

// Request asks for an intent of Amount minor units, or for the priced total
// of Items when a selection is given.
type Request struct {
	Amount         pricing.Money
	Items          pricing.Selection
	IdempotencyKey string
}

// Intent is the client-facing result.
type Intent struct {
	ClientSecret string        `json:"client_secret"`
	Amount       pricing.Money `json:"amount"`
	Currency     string        `json:"currency"`
	Provider     string        `json:"provider"`
}

// Service coordinates payment intents.
type Service struct {
	Provider Provider
	Catalog  pricing.Catalog
	TaxRate  decimal.Decimal
	Currency string
}

// CreateIntent resolves the amount and opens an intent with the provider.
func (s *Service) CreateIntent(ctx context.Context, req Request) (Intent, error) {
	if s == nil || s.Provider == nil {
		return Intent{}, errors.New("payment service not configured")
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreateIntent")
	defer span.End()

	start := time.Now()
	providerName := normaliseLabel(s.Provider.Name())
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.provider", providerName),
			attribute.Float64("payment.intent.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("payment.intent.result", result),
		)
		obs.Inc(obs.PaymentIntentTotal, providerName, result)
	}()

	amount, err := s.amount(req)
	if err != nil {
		result = "rejected"
		return Intent{}, err
	}
	currency := s.Currency
	if currency == "" {
		currency = "usd"
	}
	span.SetAttributes(attribute.Int64("payment.amount", amount))

	resp, err := s.Provider.CreateIntent(ctx, IntentRequest{
		Amount:         amount,
		Currency:       currency,
		IdempotencyKey: req.IdempotencyKey,
		Description:    "Zemen order",
	})
	if err != nil {
		span.RecordError(err)
		return Intent{}, err
	}
	result = "success"
	if resp.Provider != "" {
		providerName = normaliseLabel(resp.Provider)
	}
	return Intent{ClientSecret: resp.ClientSecret, Amount: amount, Currency: currency, Provider: providerName}, nil
}

func (s *Service) amount(req Request) (pricing.Money, error) {
	if len(req.Items) == 0 {
		if req.Amount <= 0 || req.Amount > pricing.MaxSubtotal {
			return 0, ErrInvalidAmount
		}
		return req.Amount, nil
	}
	if unknown := pricing.UnknownItems(s.Catalog, req.Items); len(unknown) > 0 {
		appErr := common.NewAppError("UNKNOWN_ITEM", "items are not on the menu", http.StatusUnprocessableEntity, nil)
		appErr.Details = unknown
		return 0, appErr
	}
	if err := pricing.CheckQuantities(req.Items); err != nil {
		if errors.Is(err, pricing.ErrQuantityTooLarge) {
			return 0, common.BadRequest("INVALID_QUANTITY", fmt.Sprintf("quantities must not exceed %d", pricing.MaxQuantity))
		}
		return 0, common.BadRequest("INVALID_QUANTITY", "quantities must not be negative")
	}
	total := pricing.ComputeTotals(s.Catalog, req.Items, s.TaxRate).Total
	if total <= 0 {
		return 0, ErrInvalidAmount
	}
	return total, nil
}

func normaliseLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
