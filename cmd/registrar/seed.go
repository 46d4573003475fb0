package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/registrar/internal/app"
	"github.com/dropDatabas3/registrar/internal/bootstrap"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/policy"
)

func newSeedCmd(rf *rootFlags) *cobra.Command {
	var demo bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea políticas por defecto, el primer admin y (opcional) datos de demo",
		Long: "Idempotente. Si no hay admin y no hay ADMIN_PASSWORD configurado, " +
			"pregunta las credenciales por terminal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := logger.ToContext(cmd.Context(), logger.L())
			if demo {
				rf.cfg.Bootstrap.Demo = true
			}
			a, err := app.New(ctx, rf.cfg, app.Options{Version: version})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := seed(ctx, a, true); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "seed complete")
			if rf.cfg.Bootstrap.Demo {
				fmt.Fprintln(out, "demo accounts:")
				for _, u := range bootstrap.DemoUsers {
					fmt.Fprintf(out, "  %-8s %-12s %s / %s\n", u.Role, u.Username, u.Email, u.Password)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "crea cuentas y cursos de demo")
	return cmd
}

func policyDefaults(a *app.App) policy.Defaults {
	p := a.Config.Policy
	return policy.Defaults{
		RegistrationStart: p.RegistrationStart,
		RegistrationEnd:   p.RegistrationEnd,
		DropDeadline:      p.DropDeadline,
	}
}
