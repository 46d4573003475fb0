// Package memory implementa un adapter en memoria para desarrollo y tests.
//
// Todo el estado vive detrás de un único mutex. WithTx toma el mutex por
// toda la transacción, trabaja sobre una copia del estado y la publica sólo
// si fn no falla, así que un rollback es simplemente descartar la copia.
// No llamar a los repositorios de la conexión desde dentro de fn: usar tx.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

// Connection es un store en memoria. El valor cero no es usable; usar New.
type Connection struct {
	mu sync.Mutex
	st *state
}

// New crea un store vacío.
func New() *Connection {
	return &Connection{st: newState()}
}

func (c *Connection) Name() string                 { return "memory" }
func (c *Connection) Ping(ctx context.Context) error { return nil }
func (c *Connection) Close() error                   { return nil }

func (c *Connection) Users() repository.UserRepository                 { return &userRepo{c.view()} }
func (c *Connection) Sessions() repository.SessionRepository           { return &sessionRepo{c.view()} }
func (c *Connection) Courses() repository.CourseRepository             { return &courseRepo{c.view()} }
func (c *Connection) Registrations() repository.RegistrationRepository { return &registrationRepo{c.view()} }
func (c *Connection) Policies() repository.PolicyRepository            { return &policyRepo{c.view()} }
func (c *Connection) AuditLogs() repository.AuditLogRepository         { return &auditRepo{c.view()} }

func (c *Connection) WithTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	work := c.st.clone()
	if err := fn(txRepos{view{st: work}}); err != nil {
		return err
	}
	c.st = work
	return nil
}

func (c *Connection) view() view { return view{conn: c} }

// view resuelve sobre qué estado opera un repositorio: el vivo (tomando el
// mutex) o la copia de una transacción en curso (el mutex ya está tomado).
type view struct {
	conn *Connection
	st   *state
}

func (v view) do(fn func(s *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.conn.mu.Lock()
	defer v.conn.mu.Unlock()
	return fn(v.conn.st)
}

type txRepos struct{ v view }

func (t txRepos) Users() repository.UserRepository                 { return &userRepo{t.v} }
func (t txRepos) Sessions() repository.SessionRepository           { return &sessionRepo{t.v} }
func (t txRepos) Courses() repository.CourseRepository             { return &courseRepo{t.v} }
func (t txRepos) Registrations() repository.RegistrationRepository { return &registrationRepo{t.v} }
func (t txRepos) Policies() repository.PolicyRepository            { return &policyRepo{t.v} }
func (t txRepos) AuditLogs() repository.AuditLogRepository         { return &auditRepo{t.v} }

type state struct {
	users    map[string]repository.User
	sessions map[string]repository.Session
	courses  map[string]repository.Course
	regs     map[string]repository.Registration
	policies map[types.PolicyKey]repository.PolicySetting
	audit    []repository.AuditLog
}

func newState() *state {
	return &state{
		users:    map[string]repository.User{},
		sessions: map[string]repository.Session{},
		courses:  map[string]repository.Course{},
		regs:     map[string]repository.Registration{},
		policies: map[types.PolicyKey]repository.PolicySetting{},
	}
}

// clone copia el estado. Los valores guardados nunca se mutan in-place
// (cada write reemplaza la entrada), salvo los punteros que se copian acá.
func (s *state) clone() *state {
	out := &state{
		users:    make(map[string]repository.User, len(s.users)),
		sessions: make(map[string]repository.Session, len(s.sessions)),
		courses:  make(map[string]repository.Course, len(s.courses)),
		regs:     make(map[string]repository.Registration, len(s.regs)),
		policies: make(map[types.PolicyKey]repository.PolicySetting, len(s.policies)),
		audit:    make([]repository.AuditLog, len(s.audit), len(s.audit)+8),
	}
	for k, v := range s.users {
		out.users[k] = copyUser(v)
	}
	for k, v := range s.sessions {
		out.sessions[k] = v
	}
	for k, v := range s.courses {
		out.courses[k] = copyCourse(v)
	}
	for k, v := range s.regs {
		out.regs[k] = copyRegistration(v)
	}
	for k, v := range s.policies {
		out.policies[k] = v
	}
	copy(out.audit, s.audit)
	return out
}
