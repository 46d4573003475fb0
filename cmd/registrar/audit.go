package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/registrar/internal/app"
	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

var errTampered = errors.New("audit: integrity check failed")

func newAuditCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Herramientas sobre el ledger de auditoría",
	}

	var (
		action string
		limit  int
	)
	verify := &cobra.Command{
		Use:   "verify [logID...]",
		Short: "Recalcula el hash de integridad de las entradas",
		Long:  "Sin IDs verifica las últimas --limit entradas (filtrables por --action).",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := logger.ToContext(cmd.Context(), logger.L())
			a, err := app.New(ctx, rf.cfg, app.Options{Version: version})
			if err != nil {
				return err
			}
			defer a.Close()

			ids := args
			if len(ids) == 0 {
				logs, err := a.Ledger.GetLogs(ctx, audit.Filter{Action: action, Limit: limit})
				if err != nil {
					return err
				}
				for _, l := range logs {
					ids = append(ids, l.ID)
				}
			}

			out := cmd.OutOrStdout()
			bad := 0
			for _, id := range ids {
				v, err := a.Ledger.Verify(ctx, id)
				if err != nil {
					fmt.Fprintf(out, "%s  ERROR  %v\n", id, err)
					bad++
					continue
				}
				status := "ok"
				if !v.Valid {
					status = "TAMPERED"
					bad++
				}
				fmt.Fprintf(out, "%s  %-8s %s\n", id, status, v.Message)
			}
			fmt.Fprintf(out, "checked %d, failed %d\n", len(ids), bad)
			if bad > 0 {
				return errTampered
			}
			return nil
		},
	}
	verify.Flags().StringVar(&action, "action", "", "filtra por acción (ej. LOGIN_FAILED)")
	verify.Flags().IntVar(&limit, "limit", 500, "máximo de entradas a verificar")

	cmd.AddCommand(verify)
	return cmd
}
