// Package session persiste sesiones (temporales y completas) y las valida
// contra el token que el cliente presenta. Sólo se guarda el SHA-256 del
// token.
package session

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/registrar/internal/cache"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	tokens "github.com/dropDatabas3/registrar/internal/security/token"
)

const (
	DefaultTempTTL = 30 * time.Minute
	DefaultFullTTL = 24 * time.Hour

	// DefaultCacheTTL acota cuánto puede vivir una sesión validada en cache.
	DefaultCacheTTL = time.Minute
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrInvalidated   = errors.New("session has been invalidated")
	ErrExpired       = errors.New("session has expired")
	ErrTokenMismatch = errors.New("invalid session token")
)

// NewSession son los datos para crear una sesión. ID vacío genera uno.
type NewSession struct {
	ID     string
	UserID string
	Token  string
	IsTemp bool
	TTL    time.Duration
}

// Service es el SessionStore.
type Service interface {
	Within(tx repository.Repositories) Service

	Create(ctx context.Context, in NewSession) (*repository.Session, error)

	// Validate devuelve la sesión si existe, sigue válida, no venció y el
	// token coincide.
	Validate(ctx context.Context, sessionID, token string) (*repository.Session, error)

	// Check aplica las mismas reglas que Validate salvo la comparación del
	// token. Sirve cuando el secreto es otro (el OTP en el paso 2 del login).
	Check(ctx context.Context, sessionID string) (*repository.Session, error)

	// Invalidate es idempotente. Dentro de Within sólo escribe en el
	// store; la cache se limpia con Forget después del commit.
	Invalidate(ctx context.Context, sessionID string) error
	InvalidateAllForUser(ctx context.Context, userID string) (int, error)

	// Forget y ForgetUser descartan lo cacheado para una sesión o para
	// todas las de un usuario. Llamarlos después del commit.
	Forget(ctx context.Context, sessionID string)
	ForgetUser(ctx context.Context, userID string)

	// Sweep borra las sesiones vencidas a now.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Deps contiene las dependencias del servicio. Cache es opcional.
type Deps struct {
	Repos    repository.Repositories
	Cache    cache.Client
	CacheTTL time.Duration
	MaxTTL   time.Duration // vida máxima de una sesión; dimensiona las marcas de revocación
	Now      func() time.Time
}

type service struct {
	deps Deps
	inTx bool
}

// NewService crea el servicio.
func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = DefaultCacheTTL
	}
	if d.MaxTTL <= 0 {
		d.MaxTTL = DefaultFullTTL
	}
	return &service{deps: d}
}

func (s *service) Within(tx repository.Repositories) Service {
	d := s.deps
	d.Repos = tx
	return &service{deps: d, inTx: true}
}

func (s *service) Create(ctx context.Context, in NewSession) (*repository.Session, error) {
	if in.UserID == "" || in.Token == "" {
		return nil, fmt.Errorf("session: user and token are required")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = DefaultFullTTL
		if in.IsTemp {
			ttl = DefaultTempTTL
		}
	}
	now := s.deps.Now().UTC()
	sess := repository.Session{
		ID:        in.ID,
		UserID:    in.UserID,
		TokenHash: tokens.SHA256Hex(in.Token),
		IsTemp:    in.IsTemp,
		IsValid:   true,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.deps.Repos.Sessions().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: create: %w", err)
	}
	return &sess, nil
}

func (s *service) Validate(ctx context.Context, sessionID, token string) (*repository.Session, error) {
	now := s.deps.Now()

	sess, cached := s.fromCache(ctx, sessionID)
	if !cached {
		var err error
		sess, err = s.deps.Repos.Sessions().GetByID(ctx, sessionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("session: get: %w", err)
		}
	}

	if !sess.IsValid {
		return nil, ErrInvalidated
	}
	if sess.Expired(now) {
		return nil, ErrExpired
	}
	if subtle.ConstantTimeCompare([]byte(sess.TokenHash), []byte(tokens.SHA256Hex(token))) != 1 {
		return nil, ErrTokenMismatch
	}

	if !cached {
		s.toCache(ctx, sess, now)
	}
	return sess, nil
}

func (s *service) Check(ctx context.Context, sessionID string) (*repository.Session, error) {
	sess, err := s.deps.Repos.Sessions().GetByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: get: %w", err)
	}
	switch {
	case !sess.IsValid:
		return nil, ErrInvalidated
	case sess.Expired(s.deps.Now()):
		return nil, ErrExpired
	}
	return sess, nil
}

func (s *service) Invalidate(ctx context.Context, sessionID string) error {
	if err := s.deps.Repos.Sessions().Invalidate(ctx, sessionID); err != nil {
		return fmt.Errorf("session: invalidate: %w", err)
	}
	if !s.inTx {
		s.Forget(ctx, sessionID)
	}
	return nil
}

func (s *service) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	n, err := s.deps.Repos.Sessions().InvalidateAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("session: invalidate all: %w", err)
	}
	if !s.inTx {
		s.ForgetUser(ctx, userID)
	}
	return n, nil
}

// Forget borra la entrada y deja una marca con el instante actual. Una
// entrada con CachedAt <= marca se descarta: CachedAt se toma antes de leer
// el store, así que cubre lecturas que vieron la fila previa al commit y se
// cachearon tarde.
func (s *service) Forget(ctx context.Context, sessionID string) {
	s.evict(ctx, sessionKey(sessionID))
	s.mark(ctx, revokedSessionKey(sessionID), s.deps.CacheTTL)
}

func (s *service) ForgetUser(ctx context.Context, userID string) {
	s.mark(ctx, revokedKey(userID), s.deps.MaxTTL)
}

func (s *service) mark(ctx context.Context, key string, ttl time.Duration) {
	if s.deps.Cache == nil {
		return
	}
	v := strconv.FormatInt(s.deps.Now().UnixNano(), 10)
	if err := s.deps.Cache.Set(ctx, key, v, ttl); err != nil {
		logger.From(ctx).Warn("session revocation mark failed",
			logger.Component("session"), logger.Key(key), logger.Err(err))
	}
}

func (s *service) Sweep(ctx context.Context, now time.Time) (int, error) {
	n, err := s.deps.Repos.Sessions().DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", err)
	}
	return n, nil
}

// ─── cache ───

type cachedSession struct {
	UserID    string    `json:"uid"`
	TokenHash string    `json:"th"`
	IsTemp    bool      `json:"tmp"`
	ExpiresAt time.Time `json:"exp"`
	CreatedAt time.Time `json:"iat"`
	CachedAt  int64     `json:"cat"`
}

func sessionKey(id string) string { return "session:" + id }
func revokedKey(uid string) string { return "session-revoked:" + uid }
func revokedSessionKey(id string) string { return "session-revoked-id:" + id }

func (s *service) fromCache(ctx context.Context, id string) (*repository.Session, bool) {
	if s.deps.Cache == nil {
		return nil, false
	}
	raw, err := s.deps.Cache.Get(ctx, sessionKey(id))
	if err != nil {
		return nil, false
	}
	var c cachedSession
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.evict(ctx, sessionKey(id))
		return nil, false
	}
	if s.revokedSince(ctx, revokedKey(c.UserID), c.CachedAt) || s.revokedSince(ctx, revokedSessionKey(id), c.CachedAt) {
		s.evict(ctx, sessionKey(id))
		return nil, false
	}
	return &repository.Session{
		ID:        id,
		UserID:    c.UserID,
		TokenHash: c.TokenHash,
		IsTemp:    c.IsTemp,
		IsValid:   true,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	}, true
}

func (s *service) revokedSince(ctx context.Context, key string, cachedAt int64) bool {
	raw, err := s.deps.Cache.Get(ctx, key)
	if err != nil {
		return false
	}
	at, err := strconv.ParseInt(raw, 10, 64)
	return err == nil && cachedAt <= at
}

func (s *service) toCache(ctx context.Context, sess *repository.Session, now time.Time) {
	if s.deps.Cache == nil {
		return
	}
	ttl := s.deps.CacheTTL
	if left := sess.ExpiresAt.Sub(now); left < ttl {
		ttl = left
	}
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(cachedSession{
		UserID:    sess.UserID,
		TokenHash: sess.TokenHash,
		IsTemp:    sess.IsTemp,
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: sess.CreatedAt,
		CachedAt:  now.UnixNano(),
	})
	if err != nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, sessionKey(sess.ID), string(raw), ttl); err != nil {
		logger.From(ctx).Debug("session cache set failed", logger.Component("session"), logger.Err(err))
	}
}

func (s *service) evict(ctx context.Context, key string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Delete(ctx, key); err != nil && !cache.IsNotFound(err) {
		logger.From(ctx).Debug("session cache evict failed", logger.Component("session"), logger.Err(err))
	}
}
