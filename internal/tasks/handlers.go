package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-zemen/internal/common"
)

// Handlers notifies restaurant staff about new orders and reservations.
type Handlers struct {
	Mail       common.EmailSender
	StaffEmail string
	Logger     zerolog.Logger
}

// Register installs the handlers on mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderSubmitted, h.HandleOrderSubmitted)
	mux.HandleFunc(TypeReservationCreated, h.HandleReservationCreated)
}

// HandleOrderSubmitted e-mails staff a summary of the order.
func (h *Handlers) HandleOrderSubmitted(ctx context.Context, t *asynq.Task) error {
	var p OrderSubmitted
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		ProcessedTotal.WithLabelValues(t.Type(), "invalid").Inc()
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	subject := fmt.Sprintf("New %s order #%d", p.OrderType, p.OrderID)
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s (%s) placed a %s order of %d item(s) totalling $%s.</p>",
		html.EscapeString(p.Name), html.EscapeString(p.Phone), html.EscapeString(p.OrderType), p.ItemCount, dollars(p.Total))
	if p.DeliveryAddress != "" {
		fmt.Fprintf(&b, "<p>Deliver to: %s</p>", html.EscapeString(p.DeliveryAddress))
	}
	if p.PaymentMethod != "" {
		fmt.Fprintf(&b, "<p>Payment: %s</p>", html.EscapeString(p.PaymentMethod))
	}
	if p.SpecialRequest != "" {
		fmt.Fprintf(&b, "<p>Request: %s</p>", html.EscapeString(p.SpecialRequest))
	}
	return h.send(t.Type(), subject, b.String(), h.Logger.With().Int64("order_id", p.OrderID).Str("request_id", p.RequestID).Logger())
}

// HandleReservationCreated e-mails staff the booking details.
func (h *Handlers) HandleReservationCreated(ctx context.Context, t *asynq.Task) error {
	var p ReservationCreated
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		ProcessedTotal.WithLabelValues(t.Type(), "invalid").Inc()
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	subject := fmt.Sprintf("Reservation for %d on %s at %s", p.PeopleCount, p.Date, p.Time)
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s (%s) booked a table for %d.</p>", html.EscapeString(p.Name), html.EscapeString(p.Phone), p.PeopleCount)
	if p.Email != "" {
		fmt.Fprintf(&b, "<p>E-mail: %s</p>", html.EscapeString(p.Email))
	}
	if p.SpecialRequest != "" {
		fmt.Fprintf(&b, "<p>Request: %s</p>", html.EscapeString(p.SpecialRequest))
	}
	return h.send(t.Type(), subject, b.String(), h.Logger.With().Int64("reservation_id", p.ReservationID).Str("request_id", p.RequestID).Logger())
}

func (h *Handlers) send(taskType, subject, body string, logger zerolog.Logger) error {
	if h.Mail == nil || h.StaffEmail == "" {
		logger.Info().Str("task", taskType).Msg("staff notification skipped")
		ProcessedTotal.WithLabelValues(taskType, "skipped").Inc()
		return nil
	}
	if err := h.Mail.Send(h.StaffEmail, subject, body); err != nil {
		logger.Error().Err(err).Str("task", taskType).Msg("staff notification failed")
		ProcessedTotal.WithLabelValues(taskType, "error").Inc()
		return err
	}
	logger.Info().Str("task", taskType).Msg("staff notified")
	ProcessedTotal.WithLabelValues(taskType, "ok").Inc()
	return nil
}

func dollars(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
