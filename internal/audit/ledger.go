// Package audit implementa el ledger de auditoría: entradas append-only,
// cada una con un HMAC sobre su snapshot canónico.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/security/integrity"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Mensajes de verificación.
const (
	MsgLogVerified = "Log integrity verified"
	MsgLogTampered = "Log integrity check failed - possible tampering"
	MsgLogNotFound = "Log not found"
)

var (
	// ErrNotFound la entrada pedida no existe.
	ErrNotFound = errors.New("audit: log not found")
	// ErrInvalidEntry la entrada no tiene acción.
	ErrInvalidEntry = errors.New("audit: entry without action")
)

// Hasher es la parte de cryptocore que usa el ledger.
type Hasher interface {
	ActionHash(a integrity.Action) (string, error)
	VerifyActionHash(a integrity.Action, hash string) (bool, error)
}

// Entry es lo que un servicio quiere registrar. UserID vacío = sistema o
// anónimo.
type Entry struct {
	Action       Action
	UserID       string
	ResourceType string
	ResourceID   string
	Details      map[string]any
	IP           string
}

// Filter filtra y pagina GetLogs.
type Filter struct {
	Action string
	UserID string
	Limit  int
	Offset int
}

// Verification es el resultado de Verify.
type Verification struct {
	LogID   string `json:"logId"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// Ledger registra y verifica entradas.
type Ledger interface {
	// Log firma y agrega la entrada. El error nunca se traga: si la entrada
	// no se pudo escribir, la operación que la originó tampoco debe seguir.
	Log(ctx context.Context, e Entry) (*repository.AuditLog, error)

	// Within devuelve un ledger que escribe sobre la transacción tx.
	Within(tx repository.Repositories) Ledger

	GetLogs(ctx context.Context, f Filter) ([]repository.AuditLog, error)
	Verify(ctx context.Context, logID string) (*Verification, error)
}

// Deps contiene las dependencias del ledger.
type Deps struct {
	Repos  repository.Repositories
	Hasher Hasher
	Now    func() time.Time // nil = time.Now
}

type ledger struct {
	deps Deps
}

// New crea el ledger.
func New(d Deps) Ledger {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &ledger{deps: d}
}

func (l *ledger) Within(tx repository.Repositories) Ledger {
	d := l.deps
	d.Repos = tx
	return &ledger{deps: d}
}

// Snapshot reconstruye la acción firmada de una entrada guardada.
func Snapshot(e repository.AuditLog) integrity.Action {
	actor := ""
	if e.UserID != nil {
		actor = *e.UserID
	}
	return integrity.Action{
		Name:         e.Action,
		ActorID:      actor,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		Timestamp:    e.Timestamp,
	}
}

func (l *ledger) Log(ctx context.Context, e Entry) (*repository.AuditLog, error) {
	if e.Action == "" {
		return nil, ErrInvalidEntry
	}
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	row := repository.AuditLog{
		ID:           uuid.NewString(),
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      details,
		IPAddress:    e.IP,
		Timestamp:    integrity.Timestamp(l.deps.Now()),
	}
	if e.UserID != "" {
		uid := e.UserID
		row.UserID = &uid
	}

	hash, err := l.deps.Hasher.ActionHash(Snapshot(row))
	if err != nil {
		return nil, fmt.Errorf("audit: hash %s: %w", e.Action, err)
	}
	row.IntegrityHash = hash

	if err := l.deps.Repos.AuditLogs().Append(ctx, row); err != nil {
		logger.From(ctx).Error("audit append failed",
			logger.Layer("service"), logger.Component("audit"), logger.Op("Log"),
			logger.Action(string(e.Action)), logger.Err(err))
		return nil, fmt.Errorf("audit: append %s: %w", e.Action, err)
	}
	metrics.RecordAudit(string(e.Action))
	return &row, nil
}

func (l *ledger) GetLogs(ctx context.Context, f Filter) ([]repository.AuditLog, error) {
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	logs, err := l.deps.Repos.AuditLogs().List(ctx, repository.AuditFilter{
		Action: f.Action,
		UserID: f.UserID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: list: %w", err)
	}
	return logs, nil
}

func (l *ledger) Verify(ctx context.Context, logID string) (*Verification, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("audit"),
		logger.Op("Verify"),
		logger.AuditID(logID),
	)

	entry, err := l.deps.Repos.AuditLogs().GetByID(ctx, logID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("audit: get %s: %w", logID, err)
	}

	ok, err := l.deps.Hasher.VerifyActionHash(Snapshot(*entry), entry.IntegrityHash)
	if err != nil {
		return nil, fmt.Errorf("audit: verify %s: %w", logID, err)
	}
	metrics.RecordIntegrityCheck("audit", ok)

	v := &Verification{LogID: logID, Valid: ok, Message: MsgLogVerified}
	if !ok {
		v.Message = MsgLogTampered
		log.Warn("audit entry failed integrity check", logger.Action(entry.Action))
	}
	return v, nil
}
