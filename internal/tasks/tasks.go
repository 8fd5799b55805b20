// Package tasks defines the background jobs raised by the site API and the
// worker handlers that process them.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeOrderSubmitted     = "order:submitted"
	TypeReservationCreated = "reservation:created"
)

// OrderSubmitted is raised after the backend accepted an order.
type OrderSubmitted struct {
	OrderID         int64  `json:"order_id"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	OrderType       string `json:"order_type"`
	Total           int64  `json:"total"`
	ItemCount       int    `json:"item_count"`
	SpecialRequest  string `json:"special_request,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
}

// ReservationCreated is raised after the backend stored a reservation.
type ReservationCreated struct {
	ReservationID  int64  `json:"reservation_id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	PeopleCount    int    `json:"people_count"`
	SpecialRequest string `json:"special_request,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
}

// NewOrderSubmittedTask encodes p. Tasks for the same backend order share an
// id so a replayed submission is not announced twice.
func NewOrderSubmittedTask(p OrderSubmitted) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", TypeOrderSubmitted, err)
	}
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
	if p.OrderID > 0 {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("%s:%d", TypeOrderSubmitted, p.OrderID)))
	}
	return asynq.NewTask(TypeOrderSubmitted, raw, opts...), nil
}

// NewReservationCreatedTask encodes p.
func NewReservationCreatedTask(p ReservationCreated) (*asynq.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", TypeReservationCreated, err)
	}
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.Timeout(30 * time.Second)}
	if p.ReservationID > 0 {
		opts = append(opts, asynq.TaskID(fmt.Sprintf("%s:%d", TypeReservationCreated, p.ReservationID)))
	}
	return asynq.NewTask(TypeReservationCreated, raw, opts...), nil
}
