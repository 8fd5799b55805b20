package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-zemen/internal/obs"
)

// HTTPRecorder records HTTP requests after they have been handled.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig customises how the audit entry is produced for a route.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware returns a chi-compatible middleware that records audit entries.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}

			rec := obs.NewStatusRecorder(w)
			next.ServeHTTP(rec, req)

			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			var metadata []byte
			if cfg.MetadataFunc != nil {
				metadata = Metadata(cfg.MetadataFunc(req, rec.Status()))
			}
			err := r.Service.Record(req.Context(), ActorFrom(req.Context()), cfg.Action, cfg.ResourceType, resourceID, req, rec.Status(), metadata)
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}
