package repository

import (
	"context"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/types"
)

// User representa un usuario del sistema.
type User struct {
	ID           string
	Username     string
	Email        string // siempre en minúsculas
	PasswordHash string
	Role         types.Role
	IsActive     bool
	OTP          *OTPChallenge
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OTPChallenge es el único desafío OTP vivo de un usuario.
type OTPChallenge struct {
	Hash      string
	ExpiresAt time.Time
	Used      bool
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         types.Role
	CreatedAt    time.Time
}

// ListUsersFilter filtra el listado de usuarios. Role vacío = todos.
type ListUsersFilter struct {
	Role types.Role
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// Create inserta un usuario. ErrConflict si username o email existen.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// GetByID obtiene un usuario por ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail obtiene un usuario por email (ya normalizado a minúsculas).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// ExistsByUsernameOrEmail reporta si ya hay un usuario con ese username
	// o email (case-insensitive).
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// List retorna usuarios ordenados por fecha de creación (desc).
	List(ctx context.Context, filter ListUsersFilter) ([]User, error)

	// SetActive activa o desactiva la cuenta.
	SetActive(ctx context.Context, id string, active bool) error

	// SetOTPChallenge reemplaza el desafío OTP vigente.
	SetOTPChallenge(ctx context.Context, id string, ch OTPChallenge) error

	// ConsumeOTPChallenge marca el desafío como usado sólo si sigue sin usar
	// y su hash coincide. ErrPreconditionFailed en caso contrario.
	ConsumeOTPChallenge(ctx context.Context, id, otpHash string) error
}
