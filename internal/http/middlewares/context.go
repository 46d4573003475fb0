package middlewares

import (
	"context"

	"github.com/dropDatabas3/registrar/internal/auth"
)

type ctxKey string

const (
	ctxPrincipalKey ctxKey = "principal"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithPrincipal inyecta el usuario autenticado en el contexto.
func WithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

// GetPrincipal retorna nil si el request no pasó por RequireAuth.
func GetPrincipal(ctx context.Context) *auth.Principal {
	if p, ok := ctx.Value(ctxPrincipalKey).(*auth.Principal); ok {
		return p
	}
	return nil
}

// MustGetPrincipal hace panic si no hay principal. Usar sólo en rutas
// detrás de RequireAuth.
func MustGetPrincipal(ctx context.Context) *auth.Principal {
	p := GetPrincipal(ctx)
	if p == nil {
		panic("middlewares: no principal in context")
	}
	return p
}

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, rid)
}

func GetRequestID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return s
	}
	return ""
}
