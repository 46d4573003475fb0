package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/registrar/internal/util/atomicwrite"
)

func newKeysCmd() *cobra.Command {
	var (
		writeEnv string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Genera ENCRYPTION_KEY, INTEGRITY_KEY y JWT_SECRET",
		Long: "Imprime claves nuevas en formato .env. Con --write-env las agrega al " +
			"archivo sin pisar las existentes (salvo --force). Rotar ENCRYPTION_KEY o " +
			"INTEGRITY_KEY deja ilegibles/inválidos los registros ya escritos.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			vals, err := generateKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if writeEnv == "" {
				names := make([]string, 0, len(vals))
				for k := range vals {
					names = append(names, k)
				}
				sort.Strings(names)
				for _, k := range names {
					fmt.Fprintf(out, "%s=%s\n", k, vals[k])
				}
				return nil
			}

			kept, err := atomicwrite.MergeEnv(writeEnv, vals, force)
			if err != nil {
				return err
			}
			for _, k := range kept {
				fmt.Fprintf(out, "kept existing %s (use --force to replace)\n", k)
			}
			fmt.Fprintf(out, "wrote %s\n", writeEnv)
			return nil
		},
	}
	cmd.Flags().StringVar(&writeEnv, "write-env", "", "archivo .env donde guardar las claves")
	cmd.Flags().BoolVar(&force, "force", false, "reemplaza claves existentes")
	return cmd
}

func generateKeys() (map[string]string, error) {
	enc, err := randomBytes(32)
	if err != nil {
		return nil, err
	}
	integ, err := randomBytes(32)
	if err != nil {
		return nil, err
	}
	jwt, err := randomBytes(32)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"ENCRYPTION_KEY": base64.StdEncoding.EncodeToString(enc),
		"INTEGRITY_KEY":  hex.EncodeToString(integ),
		"JWT_SECRET":     hex.EncodeToString(jwt),
	}, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto/rand: %w", err)
	}
	return b, nil
}
