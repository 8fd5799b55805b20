package auth

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
)

// Middleware wires admin sessions into HTTP handlers.
type Middleware struct {
	Service *Service
}

// RequireAdmin rejects requests without a backend-verified admin token and
// places the token and username on the request context.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Service == nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
			return
		}
		token := extractToken(r)
		if token == "" {
			common.WriteError(w, ErrInvalidToken)
			return
		}
		username, err := m.Service.Verify(r.Context(), token)
		if err != nil {
			obs.Logger(r).Warn().Err(err).Msg("admin token rejected")
			common.WriteError(w, err)
			return
		}
		obs.NoteAdmin(r.Context(), username)
		next.ServeHTTP(w, r.WithContext(common.WithAdminSession(r.Context(), token, username)))
	})
}

// extractToken accepts "Token <t>" as sent to the backend and "Bearer <t>".
func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, value, ok := strings.Cut(header, " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(value)
	default:
		return ""
	}
}
