package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/auth"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	httperrors "github.com/dropDatabas3/registrar/internal/http/errors"
	"github.com/dropDatabas3/registrar/internal/http/helpers"
	jwtx "github.com/dropDatabas3/registrar/internal/jwt"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/session"
)

// Authenticator es la parte de auth.Service que usa RequireAuth.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*auth.Principal, error)
}

// RequireAuth valida el bearer y la sesión; deja el Principal en el
// contexto y agrega user_id al logger del request.
func RequireAuth(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := helpers.BearerToken(r)
			if tok == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("No token provided"))
				return
			}
			p, err := a.Authenticate(r.Context(), tok)
			if err != nil {
				httperrors.WriteError(w, authError(err))
				return
			}
			ctx := WithPrincipal(r.Context(), p)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(p.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authError(err error) *httperrors.AppError {
	switch {
	case errors.Is(err, jwtx.ErrTokenExpired):
		return httperrors.ErrTokenExpired
	case errors.Is(err, jwtx.ErrTokenInvalid):
		return httperrors.ErrInvalidToken
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrInvalidated),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, session.ErrTokenMismatch),
		errors.Is(err, auth.ErrSessionUserMismatch):
		return httperrors.ErrSessionInvalid.WithCause(err)
	}
	return httperrors.ErrInternal.WithCause(err)
}

// RequireMFA rechaza sesiones temporales.
func RequireMFA() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			if err := auth.RequireMFA(*p); err != nil {
				httperrors.WriteError(w, httperrors.ErrMFARequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability exige que el rol del principal tenga la capacidad.
// Cada rechazo queda auditado como UNAUTHORIZED_ACCESS.
func RequireCapability(ledger audit.Ledger, caps ...types.Capability) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if p == nil {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			for _, c := range caps {
				if p.Can(c) {
					next.ServeHTTP(w, r)
					return
				}
			}
			required := make([]string, 0, len(caps))
			for _, c := range caps {
				required = append(required, string(c))
			}
			Deny(w, r, ledger, p, map[string]any{"requiredCapability": required})
		})
	}
}

// Deny audita UNAUTHORIZED_ACCESS y responde 403. extra se suma a los
// detalles base (rol, path, método).
func Deny(w http.ResponseWriter, r *http.Request, ledger audit.Ledger, p *auth.Principal, extra map[string]any) {
	details := map[string]any{
		"attemptedRole": string(p.Role),
		"path":          r.URL.Path,
		"method":        r.Method,
	}
	for k, v := range extra {
		details[k] = v
	}
	_, err := ledger.Log(r.Context(), audit.Entry{
		Action:       audit.ActionUnauthorizedAccess,
		UserID:       p.UserID,
		ResourceType: audit.ResourceEndpoint,
		ResourceID:   r.Method + " " + r.URL.Path,
		Details:      details,
		IP:           helpers.ClientIP(r),
	})
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}
	httperrors.WriteError(w, httperrors.ErrForbidden)
}
