package analytics

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/backend-zemen/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Dashboard returns the aggregated order report. The optional tz query
// parameter selects the IANA zone used for day boundaries.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	loc := time.Local
	if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tz", nil)
			return
		}
		loc = parsed
	}
	report, err := h.Svc.Dashboard(r.Context(), loc)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "admin session required", nil)
			return
		}
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, report)
}
