package obs

import "context"

// routePatternKey is the context key storing matched route pattern.
type routePatternKey struct{}

type adminHolderKey struct{}

type adminHolder struct {
	username string
}

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

func withAdminHolder(ctx context.Context, h *adminHolder) context.Context {
	return context.WithValue(ctx, adminHolderKey{}, h)
}

// NoteAdmin records the verified admin username for the request log line.
func NoteAdmin(ctx context.Context, username string) {
	if h, ok := ctx.Value(adminHolderKey{}).(*adminHolder); ok && h != nil {
		h.username = username
	}
}
