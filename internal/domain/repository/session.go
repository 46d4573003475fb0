package repository

import (
	"context"
	"time"
)

// Session es una sesión persistida. Nunca guarda el token en claro.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	IsTemp    bool
	IsValid   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reporta si la sesión venció en el instante now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository define operaciones para gestionar sesiones.
type SessionRepository interface {
	// Create persiste una sesión nueva.
	Create(ctx context.Context, s Session) error

	// GetByID obtiene una sesión por ID.
	GetByID(ctx context.Context, id string) (*Session, error)

	// Invalidate marca la sesión como inválida. Idempotente.
	Invalidate(ctx context.Context, id string) error

	// InvalidateAllForUser invalida todas las sesiones válidas del usuario.
	// Retorna cuántas cambiaron.
	InvalidateAllForUser(ctx context.Context, userID string) (int, error)

	// DeleteExpired elimina sesiones vencidas a la fecha dada.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
