// Package migrations embebe las migraciones SQL de Postgres.
package migrations

import "embed"

// FS contiene los archivos {version}_{name}.sql.
//
//go:embed *.sql
var FS embed.FS

// Dir es el directorio dentro de FS donde viven las migraciones.
const Dir = "."
