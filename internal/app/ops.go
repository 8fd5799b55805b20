package app

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// OpsAuth guards operational endpoints with HTTP basic auth. Hash is an
// argon2id hash of the password as printed by zemenctl hash-password.
type OpsAuth struct {
	User   string
	Hash   string
	Logger zerolog.Logger
}

// Middleware rejects requests without matching credentials. With no user
// configured every request is rejected.
func (a OpsAuth) Middleware(next http.Handler) http.Handler {
	user := strings.TrimSpace(a.User)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || user == "" || a.Hash == "" || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 {
			unauthorised(w)
			return
		}
		match, err := argon2id.ComparePasswordAndHash(p, a.Hash)
		if err != nil {
			a.Logger.Error().Err(err).Msg("verify ops credentials")
		}
		if !match {
			unauthorised(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorised(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="ops"`)
	http.Error(w, "unauthorised", http.StatusUnauthorized)
}

// OpsHandler serves /metrics and /debug/pprof behind auth.
func OpsHandler(auth OpsAuth, metrics, profiling bool) http.Handler {
	mux := http.NewServeMux()
	if metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}
	if profiling {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return auth.Middleware(mux)
}
