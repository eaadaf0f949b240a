package middleware

import (
	"context"

	"github.com/brametal/chapas-backend/pkg/enums"
)

type contextKey string

const (
	ctxRole contextKey = "actor_role"
)

// RoleFromContext returns the role granted by the access key, or "" for
// unauthenticated requests.
func RoleFromContext(ctx context.Context) enums.AccessRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.AccessRole); ok {
		return v
	}
	return ""
}

// WithRole injects the caller role into the context.
func WithRole(ctx context.Context, role enums.AccessRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
