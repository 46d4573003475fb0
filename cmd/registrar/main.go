// Command registrar es el binario único del servicio de inscripciones.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/registrar/internal/config"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

var version = "dev"

type rootFlags struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "registrar",
		Short:         "Servicio de inscripción a cursos",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "keys" {
				return nil
			}
			return rf.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
	}
	root.PersistentFlags().StringVarP(&rf.configPath, "config", "c", envOr("REGISTRAR_CONFIG", ""), "archivo YAML o TOML (env REGISTRAR_CONFIG)")
	root.PersistentFlags().StringVar(&rf.envFile, "env-file", ".env", "archivo .env a cargar si existe")

	root.AddCommand(
		newServeCmd(rf),
		newMigrateCmd(rf),
		newSeedCmd(rf),
		newKeysCmd(),
		newAuditCmd(rf),
	)
	return root
}

// load: .env → config → logger.
func (rf *rootFlags) load() error {
	if rf.envFile != "" {
		if err := godotenv.Load(rf.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("env file %s: %w", rf.envFile, err)
		}
	}
	cfg, err := config.Load(rf.configPath)
	if err != nil {
		return err
	}
	rf.cfg = cfg
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     version,
	})
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
