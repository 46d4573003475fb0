// Package pg implementa el adapter PostgreSQL del store. Usa pgxpool
// directamente; las transacciones comparten los mismos repositorios vía la
// interfaz querier.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// querier lo cumplen *pgxpool.Pool y pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Connection{pool: pool, repos: repos{q: pool}}, nil
}

// Connection es una conexión activa a PostgreSQL.
type Connection struct {
	pool *pgxpool.Pool
	repos
}

func (c *Connection) Name() string { return "postgres" }

func (c *Connection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

// Pool expone el pool para métricas.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// WithTx corre fn en una transacción READ COMMITTED. Las escrituras que
// necesitan exclusión (cupos, re-inscripción) usan updates condicionados
// y SELECT ... FOR UPDATE dentro de fn.
func (c *Connection) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	return pgx.BeginTxFunc(ctx, c.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(repos{q: tx})
	})
}

// repos agrupa los repositorios sobre un querier (pool o tx).
type repos struct{ q querier }

func (r repos) Users() repository.UserRepository                 { return &userRepo{q: r.q} }
func (r repos) Sessions() repository.SessionRepository           { return &sessionRepo{q: r.q} }
func (r repos) Courses() repository.CourseRepository             { return &courseRepo{q: r.q} }
func (r repos) Registrations() repository.RegistrationRepository { return &registrationRepo{q: r.q} }
func (r repos) Policies() repository.PolicyRepository            { return &policyRepo{q: r.q} }
func (r repos) AuditLogs() repository.AuditLogRepository         { return &auditRepo{q: r.q} }

// mapErr traduce errores de pgx a los del dominio.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("pg: %s: %s: %w", op, pgErr.ConstraintName, repository.ErrConflict)
		case "23503", "23502": // fk, not null
			return fmt.Errorf("pg: %s: %s: %w", op, pgErr.Code, repository.ErrInvalidInput)
		case "22P02": // uuid mal formado: para lookups equivale a inexistente
			return repository.ErrNotFound
		case "23514": // check_violation
			return fmt.Errorf("pg: %s: %s: %w", op, pgErr.ConstraintName, repository.ErrPreconditionFailed)
		}
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

// exists se usa para distinguir not-found de precondition tras un update
// condicionado que no afectó filas.
func exists(ctx context.Context, q querier, table, id string) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func guardMiss(ctx context.Context, q querier, table, id, op string) error {
	ok, err := exists(ctx, q, table, id)
	if err != nil {
		return mapErr(op, err)
	}
	if !ok {
		return repository.ErrNotFound
	}
	return repository.ErrPreconditionFailed
}
