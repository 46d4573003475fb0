package repository

import (
	"context"
	"time"
)

// AuditLog es una entrada inmutable del ledger de auditoría.
type AuditLog struct {
	ID            string
	Action        string
	UserID        *string // nil para eventos de sistema/anónimos
	ResourceType  string
	ResourceID    string
	Details       map[string]any
	IPAddress     string
	IntegrityHash string
	Timestamp     time.Time
}

// AuditFilter filtra y pagina el listado de auditoría.
type AuditFilter struct {
	Action string
	UserID string
	Limit  int
	Offset int
}

// AuditLogRepository es append-only: no hay Update ni Delete.
type AuditLogRepository interface {
	Append(ctx context.Context, entry AuditLog) error
	GetByID(ctx context.Context, id string) (*AuditLog, error)

	// List retorna entradas de la más nueva a la más vieja.
	List(ctx context.Context, filter AuditFilter) ([]AuditLog, error)
}
