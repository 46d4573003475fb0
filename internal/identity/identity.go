// Package identity gestiona cuentas de usuario, credenciales y el desafío
// OTP de cada usuario.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/security/password"
	"github.com/dropDatabas3/registrar/internal/util"
	"github.com/dropDatabas3/registrar/internal/validation"
)

// DefaultOTPTTL vigencia de un desafío OTP.
const DefaultOTPTTL = 5 * time.Minute

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrDuplicate          = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrNotFound           = errors.New("user not found")

	ErrNoChallenge = errors.New("no valid OTP found")
	ErrOTPExpired  = errors.New("OTP has expired")
	ErrOTPMismatch = errors.New("invalid OTP")
)

// Failure explica, sólo para auditoría, por qué falló VerifyCredentials.
type Failure string

const (
	FailureUnknownUser   Failure = "User not found"
	FailureWrongPassword Failure = "Invalid password"
	FailureDeactivated   Failure = "Account deactivated"
)

// NewUser son los datos de alta.
type NewUser struct {
	Username string
	Email    string
	Password string
	Role     types.Role
}

// PublicUser es la vista segura de un usuario.
type PublicUser struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      types.Role `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
}

// PublicView proyecta un usuario sin hash de password ni OTP.
func PublicView(u *repository.User) PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Crypto es la parte de cryptocore que usa identity.
type Crypto interface {
	HashPassword(plain string) (string, error)
	VerifyPassword(plain, hash string) bool
	HashOTP(code string) string
	VerifyOTP(code, hash string) bool
}

// Service es el IdentityStore.
type Service interface {
	// Within devuelve el servicio operando sobre la transacción tx.
	Within(tx repository.Repositories) Service

	CreateUser(ctx context.Context, in NewUser) (*repository.User, error)

	// VerifyCredentials devuelve el usuario si email y password coinciden.
	// El Failure nunca se expone al cliente.
	VerifyCredentials(ctx context.Context, email, plain string) (*repository.User, Failure, error)

	IssueOTPChallenge(ctx context.Context, userID, code string) (time.Time, error)
	VerifyOTPChallenge(ctx context.Context, userID, candidate string) error

	GetByID(ctx context.Context, id string) (*repository.User, error)
	List(ctx context.Context, role types.Role) ([]repository.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// Deps contiene las dependencias de identity.
type Deps struct {
	Repos          repository.Repositories
	Crypto         Crypto
	PasswordPolicy password.Policy
	OTPTTL         time.Duration
	Now            func() time.Time
}

type service struct {
	deps Deps

	dummyOnce *sync.Once
	dummy     *string
}

// NewService crea el servicio.
func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.OTPTTL <= 0 {
		d.OTPTTL = DefaultOTPTTL
	}
	return &service{deps: d, dummyOnce: new(sync.Once), dummy: new(string)}
}

func (s *service) Within(tx repository.Repositories) Service {
	cp := *s
	cp.deps.Repos = tx
	return &cp
}

// dummyHash es un hash con el mismo costo que los reales; comparar contra
// él iguala el tiempo de respuesta cuando el email no existe.
func (s *service) dummyHash() string {
	s.dummyOnce.Do(func() {
		if h, err := s.deps.Crypto.HashPassword(uuid.NewString()); err == nil {
			*s.dummy = h
		}
	})
	return *s.dummy
}

// WeakPasswordError lista las reglas que no cumple la password.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Reasons, ", ")
}

func (e *WeakPasswordError) Unwrap() error { return ErrWeakPassword }

func (s *service) CreateUser(ctx context.Context, in NewUser) (*repository.User, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("identity"),
		logger.Op("CreateUser"),
	)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = types.RoleStudent
	}
	switch {
	case !validation.Username(in.Username):
		return nil, fmt.Errorf("%w: username must be 3-50 characters of letters, digits or underscore", ErrInvalidInput)
	case !validation.Email(in.Email):
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	case !in.Role.IsValid():
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}
	if ok, reasons := s.deps.PasswordPolicy.Validate(in.Password); !ok {
		return nil, &WeakPasswordError{Reasons: reasons}
	}

	exists, err := s.deps.Repos.Users().ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("identity: check duplicate: %w", err)
	}
	if exists {
		return nil, ErrDuplicate
	}

	hash, err := s.deps.Crypto.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("identity: hash password: %w", err)
	}

	u, err := s.deps.Repos.Users().Create(ctx, repository.CreateUserInput{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    s.deps.Now().UTC(),
	})
	if err != nil {
		// La carrera entre el chequeo y el insert la resuelven los índices únicos.
		if repository.IsConflict(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("identity: create user: %w", err)
	}
	log.Info("user created", logger.UserID(u.ID), logger.Role(string(u.Role)),
		logger.Email(util.MaskEmail(u.Email)))
	return u, nil
}

func (s *service) VerifyCredentials(ctx context.Context, email, plain string) (*repository.User, Failure, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.deps.Repos.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			s.deps.Crypto.VerifyPassword(plain, s.dummyHash())
			return nil, FailureUnknownUser, ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("identity: get by email: %w", err)
	}
	if !s.deps.Crypto.VerifyPassword(plain, u.PasswordHash) {
		return u, FailureWrongPassword, ErrInvalidCredentials
	}
	if !u.IsActive {
		return u, FailureDeactivated, ErrAccountDeactivated
	}
	return u, "", nil
}

func (s *service) IssueOTPChallenge(ctx context.Context, userID, code string) (time.Time, error) {
	expires := s.deps.Now().UTC().Add(s.deps.OTPTTL)
	err := s.deps.Repos.Users().SetOTPChallenge(ctx, userID, repository.OTPChallenge{
		Hash:      s.deps.Crypto.HashOTP(code),
		ExpiresAt: expires,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("identity: set otp: %w", err)
	}
	return expires, nil
}

func (s *service) VerifyOTPChallenge(ctx context.Context, userID, candidate string) error {
	u, err := s.deps.Repos.Users().GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrNoChallenge
		}
		return fmt.Errorf("identity: get user: %w", err)
	}
	ch := u.OTP
	if ch == nil || ch.Used {
		return ErrNoChallenge
	}
	if !s.deps.Now().Before(ch.ExpiresAt) {
		return ErrOTPExpired
	}
	if !validation.OTP(candidate) || !s.deps.Crypto.VerifyOTP(candidate, ch.Hash) {
		return ErrOTPMismatch
	}
	// El update condicionado garantiza un único canje aunque dos requests
	// lleguen juntos con el mismo código.
	if err := s.deps.Repos.Users().ConsumeOTPChallenge(ctx, userID, ch.Hash); err != nil {
		if repository.IsPreconditionFailed(err) || repository.IsNotFound(err) {
			return ErrNoChallenge
		}
		return fmt.Errorf("identity: consume otp: %w", err)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, err := s.deps.Repos.Users().GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("identity: get user: %w", err)
	}
	return u, nil
}

func (s *service) List(ctx context.Context, role types.Role) ([]repository.User, error) {
	if role != "" && !role.IsValid() {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}
	users, err := s.deps.Repos.Users().List(ctx, repository.ListUsersFilter{Role: role})
	if err != nil {
		return nil, fmt.Errorf("identity: list users: %w", err)
	}
	return users, nil
}

func (s *service) SetActive(ctx context.Context, id string, active bool) error {
	if err := s.deps.Repos.Users().SetActive(ctx, id, active); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("identity: set active: %w", err)
	}
	return nil
}
