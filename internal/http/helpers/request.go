package helpers

import (
	"net"
	"net/http"
	"strings"

	"github.com/dropDatabas3/registrar/internal/audit"
)

// ClientIP retorna la IP del peer. X-Forwarded-For sólo cuenta si
// middlewares.WithTrustedProxies ya reescribió RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// Meta arma los datos de request que van a auditoría.
func Meta(r *http.Request) audit.Meta {
	return audit.Meta{IP: ClientIP(r), UserAgent: r.UserAgent()}
}

// BearerToken extrae el token de "Authorization: Bearer <t>".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
