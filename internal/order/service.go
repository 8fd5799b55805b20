// Package order prices and forwards customer orders to the backend.
package order

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/pricing"
	"github.com/noah-isme/backend-zemen/internal/tasks"
)

// Pickup payment methods accepted by the backend.
const (
	PaymentStore  = "store"
	PaymentOnline = "online"
)

// Backend is the part of the backend client used for orders.
type Backend interface {
	SubmitOrder(ctx context.Context, p pricing.OrderPayload, addr backend.Address) (backend.SubmittedOrder, error)
	Orders(ctx context.Context, token string) ([]backend.OrderRecord, error)
}

// SubmitRequest is the customer checkout form.
type SubmitRequest struct {
	Name                string            `json:"name" validate:"required,max=100"`
	Phone               string            `json:"phone" validate:"required,max=32"`
	OrderType           pricing.OrderType `json:"order_type" validate:"required,oneof=pickup delivery"`
	Street              string            `json:"street" validate:"max=200"`
	City                string            `json:"city" validate:"max=100"`
	State               string            `json:"state" validate:"max=50"`
	Zip                 string            `json:"zip" validate:"max=10"`
	PickupPaymentMethod string            `json:"pickup_payment_method" validate:"omitempty,oneof=store online"`
	SpecialRequest      string            `json:"special_request" validate:"max=1000"`
	Items               pricing.Selection `json:"items" validate:"required,min=1,dive,keys,required,endkeys,gt=0,lte=999"`
	// ClientTotal is the total the browser displayed, in minor units. It is
	// only compared against the server total.
	ClientTotal *pricing.Money `json:"client_total,omitempty"`
}

func (r SubmitRequest) address() backend.Address {
	return backend.Address{
		Street: strings.TrimSpace(r.Street),
		City:   strings.TrimSpace(r.City),
		State:  strings.TrimSpace(r.State),
		Zip:    strings.TrimSpace(r.Zip),
	}
}

// Result pairs the forwarded payload with the backend's order record.
type Result struct {
	Payload pricing.OrderPayload   `json:"payload"`
	Order   backend.SubmittedOrder `json:"order"`
}

// Service submits orders. Prices are always taken from Catalog at submission
// time.
type Service struct {
	Backend Backend
	Catalog pricing.Catalog
	TaxRate decimal.Decimal
	Tasks   tasks.Enqueuer
}

// Submit prices req, forwards it and announces the accepted order.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Result, error) {
	if s == nil || s.Backend == nil {
		return Result{}, errors.New("order service not configured")
	}
	ctx, span := otel.Tracer("order.Service").Start(ctx, "OrderService.Submit")
	defer span.End()

	start := time.Now()
	orderType := string(req.OrderType)
	result := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("order.type", orderType),
			attribute.String("order.result", result),
			attribute.Float64("order.submit.duration_ms", obs.DurationMillis(time.Since(start))),
		)
		obs.Inc(obs.OrdersSubmittedTotal, orderType, result)
	}()

	if unknown := pricing.UnknownItems(s.Catalog, req.Items); len(unknown) > 0 {
		result = "rejected"
		appErr := common.NewAppError("UNKNOWN_ITEM", "items are not on the menu", http.StatusUnprocessableEntity, nil)
		appErr.Details = unknown
		return Result{}, appErr
	}

	addr := req.address()
	customer := pricing.Customer{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
	}
	switch req.OrderType {
	case pricing.OrderDelivery:
		customer.DeliveryAddress = addr.String()
	case pricing.OrderPickup:
		customer.PickupPaymentMethod = req.PickupPaymentMethod
		if customer.PickupPaymentMethod == "" {
			customer.PickupPaymentMethod = PaymentStore
		}
	}
	payload := pricing.BuildOrderPayload(req.Items, s.Catalog, customer, req.OrderType, strings.TrimSpace(req.SpecialRequest), s.TaxRate)

	logger := zerolog.Ctx(ctx)
	if req.ClientTotal != nil && *req.ClientTotal != payload.TotalPrice {
		logger.Warn().
			Int64("client_total", *req.ClientTotal).
			Int64("server_total", payload.TotalPrice).
			Msg("client total differs from server total")
	}
	span.SetAttributes(
		attribute.Int64("order.total", payload.TotalPrice),
		attribute.Int("order.items", len(payload.Items)),
	)

	submitted, err := s.Backend.SubmitOrder(ctx, payload, addr)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	result = "success"
	span.SetAttributes(attribute.Int64("order.id", submitted.ID))
	obs.RecordOrderValue(ctx, payload.TotalPrice, orderType)

	s.announce(ctx, logger, payload, submitted)
	return Result{Payload: payload, Order: submitted}, nil
}

// announce enqueues the staff notification. The order is already stored, so
// failures are only logged.
func (s *Service) announce(ctx context.Context, logger *zerolog.Logger, p pricing.OrderPayload, submitted backend.SubmittedOrder) {
	if s.Tasks == nil {
		return
	}
	task, err := tasks.NewOrderSubmittedTask(tasks.OrderSubmitted{
		OrderID:         submitted.ID,
		Name:            p.Name,
		Phone:           p.Phone,
		OrderType:       string(p.OrderType),
		Total:           p.TotalPrice,
		ItemCount:       itemCount(p.Items),
		SpecialRequest:  p.SpecialRequest,
		DeliveryAddress: p.DeliveryAddress,
		PaymentMethod:   p.PickupPaymentMethod,
		RequestID:       middleware.GetReqID(ctx),
	})
	if err == nil {
		err = s.Tasks.Enqueue(ctx, task)
	}
	if err != nil {
		logger.Error().Err(err).Int64("order_id", submitted.ID).Msg("enqueue order notification")
	}
}

// History returns the backend order history for the admin holding token.
func (s *Service) History(ctx context.Context, token string) ([]backend.OrderRecord, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("order service not configured")
	}
	return s.Backend.Orders(ctx, token)
}

func itemCount(items []pricing.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func idString(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
