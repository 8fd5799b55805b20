package audit

import (
	"net/http"

	"github.com/noah-isme/backend-zemen/internal/common"
)

// Handler exposes HTTP endpoints for working with audit logs.
type Handler struct {
	Store Store
}

// List returns a page of audit entries, newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	limit, offset := common.ParseLimitOffset(r, 50)
	rows, total, err := h.Store.List(r.Context(), limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": rows,
		"page": common.Page{Limit: limit, Offset: offset, Total: total},
	})
}
