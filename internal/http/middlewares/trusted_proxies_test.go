package middlewares

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dropDatabas3/registrar/internal/http/helpers"
)

func clientIPThrough(mw Middleware, remote string, xff ...string) string {
	var got string
	h := mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = helpers.ClientIP(r)
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remote
	for _, v := range xff {
		r.Header.Add("X-Forwarded-For", v)
	}
	h.ServeHTTP(httptest.NewRecorder(), r)
	return got
}

func TestWithTrustedProxies(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	t.Run("no proxies configured ignores header", func(t *testing.T) {
		assert.Equal(t, "198.51.100.4", clientIPThrough(WithTrustedProxies(nil), "198.51.100.4:4000", "203.0.113.9"))
	})
	t.Run("untrusted peer ignores header", func(t *testing.T) {
		assert.Equal(t, "198.51.100.4", clientIPThrough(WithTrustedProxies(trusted), "198.51.100.4:4000", "203.0.113.9"))
	})
	t.Run("trusted peer uses rightmost untrusted hop", func(t *testing.T) {
		// el cliente inventa 1.2.3.4; el proxy agrega la IP real
		assert.Equal(t, "203.0.113.9", clientIPThrough(WithTrustedProxies(trusted), "10.0.0.2:4000", "1.2.3.4, 203.0.113.9, 10.0.0.5"))
	})
	t.Run("multiple header lines", func(t *testing.T) {
		assert.Equal(t, "203.0.113.9", clientIPThrough(WithTrustedProxies(trusted), "10.0.0.2:4000", "1.2.3.4", "203.0.113.9"))
	})
	t.Run("garbage hop keeps peer", func(t *testing.T) {
		assert.Equal(t, "10.0.0.2", clientIPThrough(WithTrustedProxies(trusted), "10.0.0.2:4000", "203.0.113.9, nope"))
	})
	t.Run("only proxies keeps peer", func(t *testing.T) {
		assert.Equal(t, "10.0.0.2", clientIPThrough(WithTrustedProxies(trusted), "10.0.0.2:4000", "10.1.1.1"))
	})
}

func TestUserIPKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "198.51.100.4:4000"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "unknown|198.51.100.4", UserIPKey(r))
}
