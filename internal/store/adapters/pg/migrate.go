package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/registrar/internal/store"
)

// MigrationExecutor implementa store.MigratableConnection.
func (c *Connection) MigrationExecutor() store.Executor { return &migrationExec{c: c} }

type migrationExec struct{ c *Connection }

func (m *migrationExec) EnsureTable(ctx context.Context) error {
	_, err := m.c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version    INT PRIMARY KEY,
			name       VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *migrationExec) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.c.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int32])
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[int(v)] = true
	}
	return out, nil
}

func (m *migrationExec) Apply(ctx context.Context, mig store.Migration) error {
	return pgx.BeginFunc(ctx, m.c.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.SQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO _migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
		return err
	})
}
