package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

var ErrInvalid = errors.New("config: invalid")

// Validate chequea valores críticos. Las claves son obligatorias salvo en
// dev con store en memoria, donde app genera claves efímeras.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, a ...any) { errs = append(errs, fmt.Sprintf(format, a...)) }

	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		add("storage.driver %q (postgres|memory)", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		add("storage.dsn requerido para postgres")
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			add("cache.redis.addr requerido")
		}
	default:
		add("cache.kind %q (memory|redis)", c.Cache.Kind)
	}
	switch c.SMTP.TLS {
	case "auto", "starttls", "ssl", "none":
	default:
		add("smtp.tls %q (auto|starttls|ssl|none)", c.SMTP.TLS)
	}

	if !c.EphemeralKeysAllowed() {
		if c.Security.EncryptionKey == "" {
			add("security.encryption_key requerido")
		}
		if len(c.Security.IntegrityKey) < 32 {
			add("security.integrity_key requiere >= 32 bytes")
		}
		if len(c.JWT.Secret) < 32 {
			add("jwt.secret requiere >= 32 bytes")
		}
	}

	for _, p := range [][2]string{
		{"policy.registration_start", c.Policy.RegistrationStart},
		{"policy.registration_end", c.Policy.RegistrationEnd},
		{"policy.drop_deadline", c.Policy.DropDeadline},
	} {
		if p[1] == "" {
			continue
		}
		if _, err := time.Parse(time.RFC3339, p[1]); err != nil {
			add("%s: %q no es RFC 3339", p[0], p[1])
		}
	}

	if _, err := c.TrustedProxyPrefixes(); err != nil {
		add("server.trusted_proxies: %v", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// EphemeralKeysAllowed: dev + memory puede arrancar sin claves configuradas.
func (c *Config) EphemeralKeysAllowed() bool {
	return !c.IsProd() && c.Storage.Driver == "memory"
}

// TrustedProxyPrefixes parsea server.trusted_proxies. Una IP suelta vale
// como prefijo de host (/32 o /128).
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.Server.TrustedProxies))
	for _, raw := range c.Server.TrustedProxies {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", s, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}
