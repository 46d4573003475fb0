package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/registrar/internal/app"
	"github.com/dropDatabas3/registrar/internal/bootstrap"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

func newServeCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta la API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := logger.L()
			ctx = logger.ToContext(ctx, log)

			a, err := app.New(ctx, rf.cfg, app.Options{Version: version})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := seed(ctx, a, false); err != nil {
				if !errors.Is(err, bootstrap.ErrNoAdminCredentials) {
					return err
				}
				log.Warn("no admin account yet; run `registrar seed` or set ADMIN_EMAIL/ADMIN_PASSWORD")
			}
			return a.Run(ctx)
		},
	}
}

// seed aplica el bootstrap con la configuración cargada.
func seed(ctx context.Context, a *app.App, prompt bool) error {
	cfg := a.Config
	_, err := bootstrap.Run(ctx, bootstrap.Deps{
		Repos:    a.Store,
		Identity: a.Identity,
		Courses:  a.Courses,
		Policy:   a.Policy,
	}, bootstrap.Options{
		Policy: policyDefaults(a),
		Admin: bootstrap.AdminConfig{
			Username: cfg.Bootstrap.AdminUsername,
			Email:    cfg.Bootstrap.AdminEmail,
			Password: cfg.Bootstrap.AdminPassword,
			Prompt:   prompt,
		},
		Demo: cfg.Bootstrap.Demo,
	})
	return err
}
