package reservation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
)

// Handler exposes reservation endpoints.
type Handler struct {
	Svc       *Service
	Audit     *audit.Service
	Validator *validator.Validate
}

type statusRequest struct {
	Status string `json:"status"`
}

// Create handles POST /api/v1/reservations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reservation service not configured", nil)
		return
	}
	var req CreateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if h.Validator == nil {
		h.Validator = common.NewValidator()
	}
	if err := common.ValidateStruct(h.Validator, req); err != nil {
		common.WriteError(w, err)
		return
	}
	created, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	meta := audit.Metadata(map[string]any{"date": req.Date, "time": req.Time, "people_count": req.PeopleCount})
	if err := h.Audit.Record(r.Context(), audit.ActorFrom(r.Context()), "reservation.created", "reservation", idString(created.ID), r, http.StatusCreated, meta); err != nil {
		obs.Logger(r).Error().Err(err).Msg("audit reservation")
	}
	common.Data(w, http.StatusCreated, created)
}

// List handles GET /api/v1/admin/reservations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reservation service not configured", nil)
		return
	}
	token, ok := common.AdminToken(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin session required", nil)
		return
	}
	list, err := h.Svc.List(r.Context(), token)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, list)
}

// UpdateStatus handles PATCH /api/v1/admin/reservations/{id}.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "reservation service not configured", nil)
		return
	}
	token, ok := common.AdminToken(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin session required", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid reservation id", nil)
		return
	}
	var req statusRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	updated, err := h.Svc.UpdateStatus(r.Context(), token, id, req.Status)
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
		var up common.UpstreamError
		if !common.IsAppError(err) && errors.As(err, &up) {
			status = upstreamStatus(up)
		}
	}
	meta := audit.Metadata(map[string]string{"status": req.Status})
	if auditErr := h.Audit.Record(r.Context(), audit.ActorFrom(r.Context()), "reservation.status_updated", "reservation", strconv.FormatInt(id, 10), r, status, meta); auditErr != nil {
		obs.Logger(r).Error().Err(auditErr).Msg("audit reservation status")
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, updated)
}

func upstreamStatus(up common.UpstreamError) int {
	if s := up.UpstreamStatus(); s >= 400 && s < 500 {
		return s
	}
	return http.StatusBadGateway
}

func idString(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
