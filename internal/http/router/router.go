// Package router arma el árbol de rutas de la API.
package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/config"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/http/controllers"
	httperrors "github.com/dropDatabas3/registrar/internal/http/errors"
	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
	"github.com/dropDatabas3/registrar/internal/rate"
)

// Limits son los límites por bucket.
type Limits struct {
	Login        config.Limit
	OTP          config.Limit
	API          config.Limit
	Registration config.Limit
}

// Deps contiene todo lo que necesita el router.
type Deps struct {
	Auth          *controllers.Auth
	Courses       *controllers.Courses
	Registrations *controllers.Registrations
	Admin         *controllers.Admin
	Health        http.Handler
	Metrics       http.Handler // nil = sin /metrics

	Authenticator mw.Authenticator
	Ledger        audit.Ledger

	Limiter     rate.MultiLimiter // nil = sin rate limiting
	Limits      Limits
	CORSOrigins []string

	// TrustedProxies habilita X-Forwarded-For sólo para estos peers.
	TrustedProxies []netip.Prefix
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithTrustedProxies(d.TrustedProxies),
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithMessage("Endpoint not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed"))
	})

	r.Method(http.MethodGet, "/health", d.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(d.limit("api", d.Limits.API, mw.IPKey))

		registerAuthRoutes(r, d)

		// todo lo demás exige sesión completa
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(d.Authenticator), mw.RequireMFA())
			registerCourseRoutes(r, d)
			registerRegistrationRoutes(r, d)
			registerAdminRoutes(r, d)
		})
	})
	return r
}

// limit arma el middleware de un bucket. Sin limiter es un no-op.
func (d Deps) limit(bucket string, l config.Limit, key mw.RateKeyFunc) mw.Middleware {
	var lim rate.Limiter
	if d.Limiter != nil && l.Limit > 0 {
		lim = rate.Fixed{Multi: d.Limiter, Limit: l.Limit, Window: l.Window}
	}
	return mw.WithRateLimit(mw.RateLimitConfig{Bucket: bucket, Limiter: lim, KeyFunc: key})
}

func (d Deps) can(caps ...types.Capability) mw.Middleware {
	return mw.RequireCapability(d.Ledger, caps...)
}
