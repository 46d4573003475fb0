// Package rate limita requests por clave (IP, email+IP, usuario).
//
// Dos backends con la misma interfaz: RedisLimiter (ventana fija
// compartida entre réplicas) y MemoryLimiter (token bucket por proceso).
package rate

import (
	"context"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

// Limiter aplica un límite fijo.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MultiLimiter recibe el límite en cada llamada; un solo backend sirve a
// todos los endpoints.
type MultiLimiter interface {
	AllowWithLimits(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// Fixed adapta un MultiLimiter a un Limiter con límite constante.
type Fixed struct {
	Multi  MultiLimiter
	Limit  int
	Window time.Duration
}

func (f Fixed) Allow(ctx context.Context, key string) (Result, error) {
	return f.Multi.AllowWithLimits(ctx, key, f.Limit, f.Window)
}
