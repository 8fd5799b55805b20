package catalog

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-zemen/internal/common"
)

// Handler exposes public menu endpoints.
type Handler struct {
	menu *Menu
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Menu *Menu
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{menu: cfg.Menu}
}

// Menu handles GET /api/v1/menu. The optional section query parameter
// narrows the response to one section.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	if h.menu == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "menu not configured", nil)
		return
	}
	if title := strings.TrimSpace(r.URL.Query().Get("section")); title != "" {
		section, ok := h.menu.Section(title)
		if !ok {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "menu section not found", nil)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		common.Data(w, http.StatusOK, []Section{section})
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	common.Data(w, http.StatusOK, h.menu.Sections())
}
