package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/registrar/internal/store"
	pgmigrations "github.com/dropDatabas3/registrar/migrations/postgres"

	_ "github.com/dropDatabas3/registrar/internal/store/adapters/pg"
)

func newMigrateCmd(rf *rootFlags) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := store.NewMigrator(pgmigrations.FS, ".")
			out := cmd.OutOrStdout()
			if list {
				migs, err := m.ParseMigrations()
				if err != nil {
					return err
				}
				for _, mig := range migs {
					fmt.Fprintf(out, "%04d  %s\n", mig.Version, mig.Name)
				}
				return nil
			}

			if rf.cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("migrate requires storage.driver=postgres (got %q)", rf.cfg.Storage.Driver)
			}
			conn, err := store.OpenAdapter(cmd.Context(), store.AdapterConfig{
				Name:         "postgres",
				DSN:          rf.cfg.Storage.DSN,
				MaxOpenConns: rf.cfg.Storage.Postgres.MaxOpenConns,
				MaxIdleConns: rf.cfg.Storage.Postgres.MaxIdleConns,
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			res, err := store.Migrate(cmd.Context(), conn, m)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "applied %d, skipped %d\n", len(res.Applied), len(res.Skipped))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "sólo lista las migraciones embebidas")
	return cmd
}
