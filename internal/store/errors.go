package store

import "errors"

var (
	// ErrAdapterNotRegistered: falta el import del adapter o el nombre es inválido.
	ErrAdapterNotRegistered = errors.New("store: adapter not registered")

	// ErrNotMigratable: la conexión no soporta migraciones (memory).
	ErrNotMigratable = errors.New("store: connection does not support migrations")
)
