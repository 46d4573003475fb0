package session

import (
	"context"
	"time"

	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

// DefaultSweepInterval período entre barridos.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper borra periódicamente las sesiones vencidas. La expiración igual
// se controla en cada Validate; el barrido sólo libera espacio.
type Sweeper struct {
	Sessions Service
	Interval time.Duration
	Now      func() time.Time
}

// Run bloquea hasta que ctx se cancela. Siempre retorna nil: un barrido
// fallido se loguea y se reintenta en el próximo tick.
func (w *Sweeper) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	log := logger.From(ctx).With(logger.Component("session.sweeper"))
	log.Info("session sweeper started", logger.Duration(interval))

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("session sweeper stopped")
			return nil
		case <-t.C:
			w.sweepOnce(ctx, now())
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context, now time.Time) {
	n, err := w.Sessions.Sweep(ctx, now)
	if err != nil {
		logger.From(ctx).Warn("session sweep failed", logger.Component("session.sweeper"), logger.Err(err))
		return
	}
	metrics.RecordSessionsSwept(n)
	if n > 0 {
		logger.From(ctx).Debug("expired sessions removed", logger.Component("session.sweeper"), logger.Count(n))
	}
}
