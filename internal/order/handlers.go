package order

import (
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// Handler exposes order endpoints.
type Handler struct {
	Svc       *Service
	Audit     *audit.Service
	Validator *validator.Validate
}

// NewValidator returns a validator that also enforces the delivery address
// rules on SubmitRequest.
func NewValidator() *validator.Validate {
	v := common.NewValidator()
	v.RegisterStructValidation(validateDelivery, SubmitRequest{})
	return v
}

func validateDelivery(sl validator.StructLevel) {
	req := sl.Current().Interface().(SubmitRequest)
	if req.OrderType != pricing.OrderDelivery {
		return
	}
	for _, f := range []struct{ value, json, name string }{
		{req.Street, "street", "Street"},
		{req.City, "city", "City"},
		{req.State, "state", "State"},
	} {
		if strings.TrimSpace(f.value) == "" {
			sl.ReportError(f.value, f.json, f.name, "required_if", "order_type delivery")
		}
	}
	if len(strings.TrimSpace(req.Zip)) < 5 {
		sl.ReportError(req.Zip, "zip", "Zip", "min", "5")
	}
}

// Submit handles POST /api/v1/orders.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	var req SubmitRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(h.validator(), req); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.Svc.Submit(r.Context(), req)
	if err != nil {
		obs.Logger(r).Warn().Err(err).Str("order_type", string(req.OrderType)).Msg("order submission failed")
		common.WriteError(w, err)
		return
	}
	meta := audit.Metadata(map[string]any{
		"order_type": res.Payload.OrderType,
		"subtotal":   res.Payload.Totals.Subtotal,
		"tax":        res.Payload.Totals.Tax,
		"total":      res.Payload.TotalPrice,
		"line_items": len(res.Payload.Items),
		"quantity":   itemCount(res.Payload.Items),
	})
	if err := h.Audit.Record(r.Context(), audit.ActorFrom(r.Context()), "order.forwarded", "order", idString(res.Order.ID), r, http.StatusCreated, meta); err != nil {
		obs.Logger(r).Error().Err(err).Msg("audit order")
	}
	common.Data(w, http.StatusCreated, res)
}

// List handles GET /api/v1/admin/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	token, ok := common.AdminToken(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin session required", nil)
		return
	}
	orders, err := h.Svc.History(r.Context(), token)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, orders)
}

func (h *Handler) validator() *validator.Validate {
	if h.Validator == nil {
		h.Validator = NewValidator()
	}
	return h.Validator
}
