package obs

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	domainOnce sync.Once

	// OrdersSubmittedTotal counts order submissions by order type and outcome.
	OrdersSubmittedTotal *prometheus.CounterVec
	// ReservationsCreatedTotal counts reservation requests by outcome.
	ReservationsCreatedTotal *prometheus.CounterVec
	// PaymentIntentTotal counts payment intent creation attempts.
	PaymentIntentTotal *prometheus.CounterVec
	// AdminLoginTotal counts admin login attempts.
	AdminLoginTotal *prometheus.CounterVec
	// BackendRequestsTotal counts calls made to the order backend.
	BackendRequestsTotal *prometheus.CounterVec

	orderValue     metric.Int64Histogram
	orderValueOnce sync.Once
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		OrdersSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Count of order submissions forwarded to the backend.",
		}, []string{"order_type", "result"})
		ReservationsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "Count of reservation requests forwarded to the backend.",
		}, []string{"result"})
		PaymentIntentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_total",
			Help:      "Count of payment intent processing outcomes.",
		}, []string{"provider", "result"})
		AdminLoginTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_login_total",
			Help:      "Count of admin login attempts by outcome.",
		}, []string{"result"})
		BackendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Count of order backend calls by operation and status class.",
		}, []string{"operation", "status"})

		OrdersSubmittedTotal = registerCounterVec(reg, OrdersSubmittedTotal)
		ReservationsCreatedTotal = registerCounterVec(reg, ReservationsCreatedTotal)
		PaymentIntentTotal = registerCounterVec(reg, PaymentIntentTotal)
		AdminLoginTotal = registerCounterVec(reg, AdminLoginTotal)
		BackendRequestsTotal = registerCounterVec(reg, BackendRequestsTotal)
	})
}

// Inc increments a domain counter when metrics are registered.
func Inc(c *prometheus.CounterVec, labels ...string) {
	if c == nil {
		return
	}
	c.WithLabelValues(labels...).Inc()
}

// RecordOrderValue adds the submitted order total to the OpenTelemetry
// histogram of order values.
func RecordOrderValue(ctx context.Context, cents int64, orderType string) {
	orderValueOnce.Do(func() {
		h, err := otel.Meter("zemen/order").Int64Histogram(
			"order.value",
			metric.WithUnit("{cent}"),
			metric.WithDescription("Total price of submitted orders."),
		)
		if err == nil {
			orderValue = h
		}
	})
	if orderValue == nil {
		return
	}
	orderValue.Record(ctx, cents, metric.WithAttributes(attribute.String("order_type", orderType)))
}

func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
			return c
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
	return c
}
