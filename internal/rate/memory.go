package rate

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MemoryLimiter: un token bucket por (limit, window, key). Capacidad
// limit, recarga limit/window. Los buckets sin uso se descartan tras
// 2*window.
type MemoryLimiter struct {
	Now func() time.Time

	mu       sync.Mutex
	limiters *gocache.Cache
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		Now:      time.Now,
		limiters: gocache.New(10*time.Minute, time.Minute),
	}
}

func (m *MemoryLimiter) bucket(key string, limit int, window time.Duration) *rate.Limiter {
	k := fmt.Sprintf("%d:%s:%s", limit, window, key)
	idle := 2 * window

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.limiters.Get(k); ok {
		lim := v.(*rate.Limiter)
		m.limiters.Set(k, lim, idle)
		return lim
	}
	every := window / time.Duration(limit)
	lim := rate.NewLimiter(rate.Every(every), limit)
	m.limiters.Set(k, lim, idle)
	return lim
}

func (m *MemoryLimiter) AllowWithLimits(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{Allowed: true}, nil
	}
	now := m.Now()
	lim := m.bucket(key, limit, window)

	if lim.AllowN(now, 1) {
		remaining := int64(math.Floor(lim.TokensAt(now)))
		if remaining < 0 {
			remaining = 0
		}
		return Result{
			Allowed:     true,
			Remaining:   remaining,
			CurrentHits: int64(limit) - remaining,
			WindowTTL:   window,
		}, nil
	}

	// Cuánto falta para el próximo token, sin consumirlo.
	r := lim.ReserveN(now, 1)
	retry := r.DelayFrom(now)
	r.CancelAt(now)
	return Result{
		Allowed:     false,
		RetryAfter:  retry,
		CurrentHits: int64(limit),
		WindowTTL:   window,
	}, nil
}
