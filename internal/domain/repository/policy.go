package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/types"
)

// PolicySetting es una fila clave/valor de política.
type PolicySetting struct {
	Key       types.PolicyKey
	Value     string // RFC 3339
	UpdatedAt time.Time
}

// PolicyRepository define operaciones sobre políticas.
type PolicyRepository interface {
	Get(ctx context.Context, key types.PolicyKey) (*PolicySetting, error)
	List(ctx context.Context) ([]PolicySetting, error)

	// Upsert crea o reemplaza el valor de la clave.
	Upsert(ctx context.Context, key types.PolicyKey, value string, at time.Time) error

	// InsertIfAbsent sólo escribe si la clave no existe. Retorna true si escribió.
	InsertIfAbsent(ctx context.Context, key types.PolicyKey, value string, at time.Time) (bool, error)
}
