// Package auth implementa el flujo de autenticación en dos pasos:
// credenciales -> OTP por email -> sesión completa con bearer JWT.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	jwtx "github.com/dropDatabas3/registrar/internal/jwt"
	"github.com/dropDatabas3/registrar/internal/session"
)

var (
	ErrMFARequired         = errors.New("MFA verification required")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrTempSessionInvalid  = errors.New("temporary session is not valid")
	ErrRoleNotAllowed      = errors.New("role cannot be self-assigned")
	ErrForbidden           = errors.New("access denied")
	ErrSessionUserMismatch = errors.New("session does not belong to token subject")
)

// Principal es el usuario autenticado de un request.
type Principal struct {
	UserID    string
	Username  string
	Role      types.Role
	SessionID string
	IsTemp    bool
}

// RequireMFA rechaza principals con sesión temporal.
func RequireMFA(p Principal) error {
	if p.IsTemp {
		return ErrMFARequired
	}
	return nil
}

// Can reporta si el principal tiene la capacidad.
func (p Principal) Can(c types.Capability) bool { return p.Role.Can(c) }

// RegisterInput son los datos de alta pública.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     types.Role
}

// LoginChallenge es la respuesta del paso 1.
type LoginChallenge struct {
	MFARequired   bool   `json:"mfaRequired"`
	UserID        string `json:"userId"`
	TempSessionID string `json:"tempSessionId"`
	TempToken     string `json:"tempToken"`
}

// VerifyOTPInput son los datos del paso 2. TempToken es opcional; si viene
// se compara contra la sesión temporal.
type VerifyOTPInput struct {
	UserID        string
	OTP           string
	TempSessionID string
	TempToken     string
}

// LoginResult es la respuesta del paso 2.
type LoginResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	SessionID string              `json:"sessionId"`
	User      identity.PublicUser `json:"user"`
}

// Crypto es la parte de cryptocore que usa auth.
type Crypto interface {
	GenerateOTP() (string, error)
	GenerateToken(nBytes int) (string, error)
	GenerateSessionID() string
}

// OTPSender entrega el código al usuario.
type OTPSender interface {
	SendOTP(ctx context.Context, to, code, username string) error
}

// Service es el AuthFlow.
type Service interface {
	Register(ctx context.Context, in RegisterInput, meta audit.Meta) (*identity.PublicUser, error)
	Login(ctx context.Context, email, password string, meta audit.Meta) (*LoginChallenge, error)
	VerifyOTP(ctx context.Context, in VerifyOTPInput, meta audit.Meta) (*LoginResult, error)
	ResendOTP(ctx context.Context, userID, tempSessionID string, meta audit.Meta) error
	Logout(ctx context.Context, p Principal, meta audit.Meta) error

	// Authenticate valida el bearer y la sesión a la que está atado.
	Authenticate(ctx context.Context, bearer string) (*Principal, error)
	Profile(ctx context.Context, userID string) (*identity.PublicUser, error)
}

// Deps contiene las dependencias de auth.
type Deps struct {
	Store    repository.DataAccess
	Identity identity.Service
	Sessions session.Service
	Ledger   audit.Ledger
	Crypto   Crypto
	Issuer   *jwtx.Issuer
	OTP      OTPSender // nil = no se entrega (sólo tests)

	TempSessionTTL time.Duration
	SessionTTL     time.Duration
	Now            func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el servicio.
func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.TempSessionTTL <= 0 {
		d.TempSessionTTL = session.DefaultTempTTL
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = session.DefaultFullTTL
	}
	return &service{deps: d}
}
