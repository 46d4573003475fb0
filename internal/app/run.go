package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/session"
)

// Run sirve HTTP y corre el sweeper de sesiones hasta que ctx se cancele
// o alguno falle. El apagado del server es ordenado.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config
	log := logger.From(ctx).With(logger.Component("app"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		sw := &session.Sweeper{
			Sessions: a.Sessions,
			Interval: cfg.Auth.SweepInterval,
			Now:      a.now,
		}
		return sw.Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
