package middlewares

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// WithTrustedProxies reescribe RemoteAddr con el cliente real cuando el
// peer es un proxy de confianza. Recorre X-Forwarded-For de derecha a
// izquierda y se queda con la primera IP que no es proxy. Sin proxies
// configurados no hace nada: el header lo controla el cliente.
func WithTrustedProxies(trusted []netip.Prefix) Middleware {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, ok := parseHostAddr(r.RemoteAddr)
			if !ok || !isTrusted(trusted, peer) {
				next.ServeHTTP(w, r)
				return
			}
			if client, ok := forwardedClient(r.Header.Values("X-Forwarded-For"), trusted); ok {
				r2 := r.Clone(r.Context())
				r2.RemoteAddr = net.JoinHostPort(client.String(), "0")
				r = r2
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(headers []string, trusted []netip.Prefix) (netip.Addr, bool) {
	var hops []string
	for _, h := range headers {
		hops = append(hops, strings.Split(h, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// basura en la cadena: no se puede seguir confiando
			return netip.Addr{}, false
		}
		a = a.Unmap()
		if !isTrusted(trusted, a) {
			return a, true
		}
	}
	return netip.Addr{}, false
}

func parseHostAddr(remote string) (netip.Addr, bool) {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}

func isTrusted(trusted []netip.Prefix, a netip.Addr) bool {
	for _, p := range trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
