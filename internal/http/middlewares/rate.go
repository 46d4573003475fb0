package middlewares

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	httperrors "github.com/dropDatabas3/registrar/internal/http/errors"
	"github.com/dropDatabas3/registrar/internal/http/helpers"
	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPKey limita por IP de cliente.
func IPKey(r *http.Request) string { return helpers.ClientIP(r) }

// EmailIPKey limita por email del body + IP, como el login.
func EmailIPKey(r *http.Request) string {
	email := strings.ToLower(extractJSONField(r, "email", 4096))
	if email == "" {
		email = "unknown"
	}
	return email + "|" + helpers.ClientIP(r)
}

// UserIPKey limita por userId del body + IP (verify-otp, resend-otp).
func UserIPKey(r *http.Request) string {
	uid := extractJSONField(r, "userId", 4096)
	if uid == "" {
		uid = "unknown"
	}
	return uid + "|" + helpers.ClientIP(r)
}

// PrincipalKey limita por usuario autenticado; cae a IP si no hay.
func PrincipalKey(r *http.Request) string {
	if p := GetPrincipal(r.Context()); p != nil {
		return "u:" + p.UserID
	}
	return helpers.ClientIP(r)
}

// extractJSONField lee hasta max bytes del body para extraer un campo y
// repone el body para el handler.
func extractJSONField(r *http.Request, field string, max int64) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	var buf bytes.Buffer
	_, _ = io.CopyN(&buf, r.Body, max)
	rest := r.Body
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf.Bytes()), rest), rest}

	var tmp map[string]any
	if err := json.Unmarshal(buf.Bytes(), &tmp); err == nil {
		if s, ok := tmp[field].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// RateLimitConfig configura un bucket de rate limiting.
type RateLimitConfig struct {
	Bucket  string // prefijo de clave y label de métricas
	Limiter rate.Limiter
	KeyFunc RateKeyFunc
}

// WithRateLimit rechaza con 429 cuando se supera el límite. Un error del
// backend deja pasar el request.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.Bucket + ":" + cfg.KeyFunc(r)
			res, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter error",
					logger.Component("rate"), logger.Key(cfg.Bucket), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				metrics.RecordRateLimitReject(cfg.Bucket)
				secs := int(res.RetryAfter.Seconds())
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httperrors.WriteError(w, httperrors.ErrRateLimited)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
