// Package atomicwrite escribe archivos de forma atómica. Lo usa el comando
// keys para no dejar un .env a medio escribir.
package atomicwrite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// WriteFile escribe data en path: tmp → fsync → chmod → rename. Si el
// rename falla (Windows con destino bloqueado) reintenta tras borrar el
// destino.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}

// MergeEnv agrega o reemplaza claves en un archivo .env. Si overwrite es
// false, una clave ya presente con valor no vacío se conserva y se reporta
// en kept.
func MergeEnv(path string, values map[string]string, overwrite bool) (kept []string, err error) {
	current := map[string]string{}
	if _, statErr := os.Stat(path); statErr == nil {
		current, err = godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, statErr
	}

	for k, v := range values {
		if old, ok := current[k]; ok && old != "" && !overwrite {
			kept = append(kept, k)
			continue
		}
		current[k] = v
	}

	out, err := godotenv.Marshal(current)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(path, []byte(out+"\n"), 0o600); err != nil {
		return nil, err
	}
	return kept, nil
}
