// Package store provee el registry de adaptadores de almacenamiento.
//
// Cada adapter se registra en init() y se abre por nombre:
//
//	import _ "github.com/dropDatabas3/registrar/internal/store/adapters/pg"
//	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{Name: "postgres", DSN: dsn})
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

// Adapter crea conexiones a un backend.
type Adapter interface {
	// Name retorna el nombre del adapter ("postgres", "memory").
	Name() string

	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection es una conexión activa: repositorios + transacciones.
type AdapterConnection interface {
	repository.DataAccess

	Name() string
	Ping(ctx context.Context) error
	Close() error
}

// MigratableConnection la implementan las conexiones SQL.
type MigratableConnection interface {
	MigrationExecutor() Executor
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "memory"
	Name string

	// DSN connection string (para DBs)
	DSN string

	// Pool settings (para DBs)
	MaxOpenConns int
	MaxIdleConns int
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter de cfg.Name.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAdapterNotRegistered, cfg.Name)
	}
	return a.Connect(ctx, cfg)
}
