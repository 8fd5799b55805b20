package cart

import (
	"net/http"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// Handler wires cart pricing to HTTP.
type Handler struct {
	Svc *Service
}

type quoteRequest struct {
	Items pricing.Selection `json:"items"`
}

type actionRequest struct {
	Selection pricing.Selection `json:"selection"`
	Action    pricing.Action    `json:"action"`
}

// Quote handles POST /api/v1/cart/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var req quoteRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.Quote(req.Items)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// Actions handles POST /api/v1/cart/actions.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	var req actionRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	next, q, err := h.Svc.Apply(req.Selection, req.Action)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"selection": next,
		"quote":     q,
	})
}
