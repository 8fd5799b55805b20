package auth

import (
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-zemen/internal/audit"
	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
)

// Handler exposes HTTP handlers for admin session endpoints.
type Handler struct {
	Service   *Service
	Audit     *audit.Service
	Validator *validator.Validate
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=256"`
}

// Login handles POST /api/v1/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := common.ValidateStruct(h.validator(), req); err != nil {
		common.WriteError(w, err)
		return
	}
	sess, err := h.Service.Login(r.Context(), req.Username, req.Password)
	actor := audit.Actor{Kind: audit.ActorKindAnonymous, Username: &req.Username}
	if err != nil {
		result := "error"
		status := http.StatusBadGateway
		if errors.Is(err, ErrInvalidCredentials) {
			result, status = "rejected", http.StatusUnauthorized
		}
		obs.Inc(obs.AdminLoginTotal, result)
		h.record(r, actor, status)
		obs.Logger(r).Warn().Err(err).Str("username", req.Username).Msg("admin login failed")
		common.WriteError(w, err)
		return
	}
	obs.Inc(obs.AdminLoginTotal, "ok")
	actor.Kind = audit.ActorKindAdmin
	actor.Username = &sess.Username
	h.record(r, actor, http.StatusOK)
	common.Data(w, http.StatusOK, map[string]string{
		"token":    sess.Token,
		"username": sess.Username,
	})
}

// Profile handles GET /api/v1/admin/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	username, ok := common.AdminUsername(r.Context())
	if !ok {
		common.WriteError(w, ErrInvalidToken)
		return
	}
	common.Data(w, http.StatusOK, map[string]string{"username": username})
}

func (h *Handler) record(r *http.Request, actor audit.Actor, status int) {
	if err := h.Audit.Record(r.Context(), actor, "admin.login", "admin_session", "", r, status, nil); err != nil {
		obs.Logger(r).Error().Err(err).Msg("audit admin login")
	}
}

func (h *Handler) validator() *validator.Validate {
	if h.Validator == nil {
		h.Validator = common.NewValidator()
	}
	return h.Validator
}
