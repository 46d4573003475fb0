package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Formato de archivo: {version}_{name}.sql (ej: 0001_init.sql)
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Executor es lo mínimo que el Migrator necesita de una conexión SQL.
type Executor interface {
	// EnsureTable crea la tabla de tracking si no existe.
	EnsureTable(ctx context.Context) error
	// AppliedVersions retorna las versiones ya registradas.
	AppliedVersions(ctx context.Context) (map[int]bool, error)
	// Apply ejecuta la migración y la registra, en una sola transacción.
	Apply(ctx context.Context, m Migration) error
}

type Migration struct {
	Version int
	Name    string
	SQL     string
}

type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Failed   *int
	Duration time.Duration
}

// Migrator aplica migraciones SQL embebidas.
type Migrator struct {
	fsys fs.FS
	dir  string
}

func NewMigrator(fsys fs.FS, dir string) *Migrator {
	if dir == "" {
		dir = "."
	}
	return &Migrator{fsys: fsys, dir: dir}
}

// ParseMigrations lee las migraciones ordenadas por versión. Versiones
// duplicadas son error.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read dir: %w", err)
	}
	seen := map[int]string{}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		version, _ := strconv.Atoi(match[1])
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrate: version %d duplicada (%s, %s)", version, prev, e.Name())
		}
		seen[version] = e.Name()

		content, err := fs.ReadFile(m.fsys, path.Join(m.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("migrate: reading %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: match[2], SQL: string(content)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Run aplica las migraciones pendientes en orden. Se detiene en la primera
// que falla.
func (m *Migrator) Run(ctx context.Context, exec Executor) (*MigrationResult, error) {
	start := time.Now()
	res := &MigrationResult{}
	done := func(err error) (*MigrationResult, error) {
		res.Duration = time.Since(start)
		return res, err
	}

	if err := exec.EnsureTable(ctx); err != nil {
		return done(fmt.Errorf("migrate: creating migrations table: %w", err))
	}
	applied, err := exec.AppliedVersions(ctx)
	if err != nil {
		return done(fmt.Errorf("migrate: getting applied migrations: %w", err))
	}
	migrations, err := m.ParseMigrations()
	if err != nil {
		return done(err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			res.Skipped = append(res.Skipped, mig.Version)
			continue
		}
		if err := exec.Apply(ctx, mig); err != nil {
			v := mig.Version
			res.Failed = &v
			return done(fmt.Errorf("migrate: applying %d_%s: %w", mig.Version, mig.Name, err))
		}
		res.Applied = append(res.Applied, mig.Version)
	}
	return done(nil)
}

// Migrate corre el Migrator sobre conn si es migrable.
func Migrate(ctx context.Context, conn AdapterConnection, m *Migrator) (*MigrationResult, error) {
	mc, ok := conn.(MigratableConnection)
	if !ok {
		return nil, ErrNotMigratable
	}
	return m.Run(ctx, mc.MigrationExecutor())
}
