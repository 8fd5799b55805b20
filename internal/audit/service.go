// Package audit keeps an append-only trail of actions taken through the site
// API.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/backend-zemen/internal/common"
	"github.com/noah-isme/backend-zemen/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindAdmin is a staff member holding a verified backend token.
	ActorKindAdmin ActorKind = "admin"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents site visitors.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind     ActorKind
	Username *string
}

// ActorFrom derives the actor from the admin session on ctx.
func ActorFrom(ctx context.Context) Actor {
	if name, ok := common.AdminUsername(ctx); ok {
		return Actor{Kind: ActorKindAdmin, Username: &name}
	}
	return Actor{Kind: ActorKindAnonymous}
}

// Service persists audit entries for gateway flows.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
}

// Record persists an audit entry when auditing is enabled. metadata must be
// JSON or empty.
func (s *Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if s == nil || !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 {
		if rand.Float64() > s.SamplingRate {
			return nil
		}
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if rc := chi.RouteContext(req.Context()); route == "" && rc != nil {
		route = rc.RoutePattern()
	}
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	requestID := middleware.GetReqID(req.Context())
	if requestID == "" {
		requestID = req.Header.Get("X-Request-ID")
	}
	finalStatus := status
	if finalStatus == 0 {
		finalStatus = http.StatusOK
	}

	_, err := s.Store.Insert(ctx, Entry{
		ActorKind:    string(normalizeActorKind(actor.Kind)),
		Actor:        sanitize(actor.Username),
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   optional(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Route:        optional(route),
		Status:       finalStatus,
		IP:           optional(common.ClientIP(req)),
		UserAgent:    optional(req.Header.Get("User-Agent")),
		RequestID:    optional(requestID),
		Metadata:     toJSONB(metadata, req.URL.RawQuery),
	})
	return err
}

// Metadata marshals v for Record, returning nil when v cannot be encoded.
func Metadata(v any) []byte {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	target := route
	if target == "" {
		target = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + target
}

func buildResource(resourceType, route string) string {
	trimmed := strings.TrimSpace(resourceType)
	if trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindAdmin, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}

func sanitize(value *string) *string {
	if value == nil {
		return nil
	}
	return optional(*value)
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toJSONB(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 && json.Valid(metadata) {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return Metadata(map[string]string{"query": query})
}
