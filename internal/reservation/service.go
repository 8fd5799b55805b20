// Package reservation forwards table bookings to the backend and lets staff
// confirm or cancel them.
package reservation

import (
	"context"
	"errors"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-zemen/internal/backend"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/tasks"
)

// Reservation statuses understood by the backend.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// ErrInvalidStatus is returned for status updates outside the known set.
var ErrInvalidStatus = common.BadRequest("INVALID_STATUS", "status must be one of pending, confirmed, cancelled")

// Backend is the part of the backend client used for reservations.
type Backend interface {
	CreateReservation(ctx context.Context, r backend.Reservation) (backend.Reservation, error)
	Reservations(ctx context.Context, token string) ([]backend.Reservation, error)
	UpdateReservationStatus(ctx context.Context, token string, id int64, status string) (backend.Reservation, error)
}

// CreateRequest is the public booking form.
type CreateRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	Phone          string `json:"phone" validate:"required,max=32"`
	Email          string `json:"email" validate:"omitempty,email,max=254"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string `json:"time" validate:"required,datetime=15:04"`
	PeopleCount    int    `json:"people_count" validate:"gte=1,lte=100"`
	SpecialRequest string `json:"special_request" validate:"max=1000"`
}

// Service creates and manages reservations through the backend.
type Service struct {
	Backend Backend
	Tasks   tasks.Enqueuer
}

// Create forwards req and announces the stored reservation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (backend.Reservation, error) {
	if s == nil || s.Backend == nil {
		return backend.Reservation{}, errors.New("reservation service not configured")
	}
	created, err := s.Backend.CreateReservation(ctx, backend.Reservation{
		Name:           strings.TrimSpace(req.Name),
		Phone:          strings.TrimSpace(req.Phone),
		Email:          strings.TrimSpace(req.Email),
		Date:           req.Date,
		Time:           req.Time,
		PeopleCount:    req.PeopleCount,
		SpecialRequest: strings.TrimSpace(req.SpecialRequest),
	})
	if err != nil {
		obs.Inc(obs.ReservationsCreatedTotal, "error")
		return backend.Reservation{}, err
	}
	obs.Inc(obs.ReservationsCreatedTotal, "success")

	task, err := tasks.NewReservationCreatedTask(tasks.ReservationCreated{
		ReservationID:  created.ID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Date:           req.Date,
		Time:           req.Time,
		PeopleCount:    req.PeopleCount,
		SpecialRequest: req.SpecialRequest,
		RequestID:      middleware.GetReqID(ctx),
	})
	if err == nil && s.Tasks != nil {
		err = s.Tasks.Enqueue(ctx, task)
	}
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("reservation_id", created.ID).Msg("enqueue reservation notification")
	}
	return created, nil
}

// List returns every reservation visible to token.
func (s *Service) List(ctx context.Context, token string) ([]backend.Reservation, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("reservation service not configured")
	}
	return s.Backend.Reservations(ctx, token)
}

// UpdateStatus moves reservation id to status.
func (s *Service) UpdateStatus(ctx context.Context, token string, id int64, status string) (backend.Reservation, error) {
	if s == nil || s.Backend == nil {
		return backend.Reservation{}, errors.New("reservation service not configured")
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !ValidStatus(status) {
		return backend.Reservation{}, ErrInvalidStatus
	}
	return s.Backend.UpdateReservationStatus(ctx, token, id, status)
}

// ValidStatus reports whether status is a known reservation status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}
