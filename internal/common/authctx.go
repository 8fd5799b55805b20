package common

import "context"

type ctxKey string

const (
	adminTokenKey ctxKey = "auth/admin-token"
	adminUserKey  ctxKey = "auth/admin-username"
)

// WithAdminSession stores the verified admin token and username on the context.
func WithAdminSession(ctx context.Context, token, username string) context.Context {
	ctx = context.WithValue(ctx, adminTokenKey, token)
	return context.WithValue(ctx, adminUserKey, username)
}

// AdminToken extracts the admin credential from the context if present.
func AdminToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(adminTokenKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// AdminUsername extracts the verified admin username from the context if present.
func AdminUsername(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(adminUserKey).(string)
	return v, ok && v != ""
}
