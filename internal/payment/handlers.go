package payment

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
	"github.com/noah-isme/backend-zemen/internal/pricing"
)

// Handler exposes HTTP endpoints for payment intents.
type Handler struct {
	Svc   *Service
	Audit *audit.Service
}

type intentReq struct {
	Amount pricing.Money     `json:"amount"`
	Items  pricing.Selection `json:"items"`
}

// Intent handles POST /api/v1/payments/intent.
func (h *Handler) Intent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req intentReq
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	intent, err := h.Svc.CreateIntent(r.Context(), Request{
		Amount:         req.Amount,
		Items:          req.Items,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		if !common.IsAppError(err) {
			obs.Logger(r).Error().Err(err).Msg("create payment intent")
		}
		common.WriteError(w, err)
		return
	}
	meta := audit.Metadata(map[string]any{"amount": intent.Amount, "currency": intent.Currency, "provider": intent.Provider})
	if err := h.Audit.Record(r.Context(), audit.ActorFrom(r.Context()), "payment.intent_requested", "payment_intent", "", r, http.StatusOK, meta); err != nil {
		obs.Logger(r).Error().Err(err).Msg("audit payment intent")
	}
	common.Data(w, http.StatusOK, intent)
}
