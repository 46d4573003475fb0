// Package policy evalúa las ventanas globales de inscripción y baja.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

// Duraciones por defecto de InitDefaults.
const (
	DefaultRegistrationSpan = 180 * 24 * time.Hour
	DefaultDropSpan         = 90 * 24 * time.Hour
)

var (
	ErrInvalidKey   = errors.New("invalid policy key")
	ErrInvalidValue = errors.New("invalid policy value")
)

// Status junta ambas evaluaciones.
type Status struct {
	Registration WindowStatus `json:"registration"`
	Drop         WindowStatus `json:"drop"`
}

// Defaults permite fijar los valores iniciales (por ejemplo desde config).
// Un campo vacío usa el default relativo a now.
type Defaults struct {
	RegistrationStart string
	RegistrationEnd   string
	DropDeadline      string
}

// Service expone PolicyGate.
type Service interface {
	IsRegistrationOpen(ctx context.Context, now time.Time) (WindowStatus, error)
	IsDropAllowed(ctx context.Context, now time.Time) (WindowStatus, error)
	Status(ctx context.Context, now time.Time) (*Status, error)
	List(ctx context.Context) ([]repository.PolicySetting, error)

	// SetPolicy reemplaza el valor de key y audita POLICY_UPDATE en la misma
	// transacción.
	SetPolicy(ctx context.Context, key types.PolicyKey, value, actorID string, meta audit.Meta) (*repository.PolicySetting, error)

	// InitDefaults crea las claves faltantes. Retorna cuántas escribió.
	InitDefaults(ctx context.Context, now time.Time, d Defaults) (int, error)
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Store  repository.DataAccess
	Ledger audit.Ledger
	Now    func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el servicio de políticas.
func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{deps: d}
}

func (s *service) settings(ctx context.Context) (Settings, error) {
	rows, err := s.deps.Store.Policies().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: list: %w", err)
	}
	out := make(Settings, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *service) IsRegistrationOpen(ctx context.Context, now time.Time) (WindowStatus, error) {
	set, err := s.settings(ctx)
	if err != nil {
		return WindowStatus{}, err
	}
	return EvaluateRegistration(set, now)
}

func (s *service) IsDropAllowed(ctx context.Context, now time.Time) (WindowStatus, error) {
	set, err := s.settings(ctx)
	if err != nil {
		return WindowStatus{}, err
	}
	return EvaluateDrop(set, now)
}

func (s *service) Status(ctx context.Context, now time.Time) (*Status, error) {
	set, err := s.settings(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := EvaluateRegistration(set, now)
	if err != nil {
		return nil, err
	}
	drop, err := EvaluateDrop(set, now)
	if err != nil {
		return nil, err
	}
	return &Status{Registration: reg, Drop: drop}, nil
}

func (s *service) List(ctx context.Context) ([]repository.PolicySetting, error) {
	rows, err := s.deps.Store.Policies().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: list: %w", err)
	}
	return rows, nil
}

func (s *service) SetPolicy(ctx context.Context, key types.PolicyKey, value, actorID string, meta audit.Meta) (*repository.PolicySetting, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("policy"),
		logger.Op("SetPolicy"),
		logger.Key(string(key)),
	)

	if !key.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	t, err := ParseValue(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	normalized := t.UTC().Format(time.RFC3339)
	now := s.deps.Now().UTC()

	err = s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Policies().Upsert(ctx, key, normalized, now); err != nil {
			return fmt.Errorf("policy: upsert: %w", err)
		}
		_, err := s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionPolicyUpdate,
			UserID:       actorID,
			ResourceType: audit.ResourcePolicy,
			ResourceID:   string(key),
			Details:      map[string]any{"key": string(key), "value": normalized},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		log.Error("set policy failed", logger.Err(err))
		return nil, err
	}
	log.Info("policy updated", logger.String("value", normalized))
	return &repository.PolicySetting{Key: key, Value: normalized, UpdatedAt: now}, nil
}

func (s *service) InitDefaults(ctx context.Context, now time.Time, d Defaults) (int, error) {
	now = now.UTC()
	values := map[types.PolicyKey]string{
		types.PolicyRegistrationStart: pick(d.RegistrationStart, now),
		types.PolicyRegistrationEnd:   pick(d.RegistrationEnd, now.Add(DefaultRegistrationSpan)),
		types.PolicyDropDeadline:      pick(d.DropDeadline, now.Add(DefaultDropSpan)),
	}
	written := 0
	for _, key := range types.PolicyKeys {
		v := values[key]
		if _, err := ParseValue(v); err != nil {
			return written, fmt.Errorf("policy: default %s: %w", key, err)
		}
		ok, err := s.deps.Store.Policies().InsertIfAbsent(ctx, key, v, now)
		if err != nil {
			return written, fmt.Errorf("policy: init %s: %w", key, err)
		}
		if ok {
			written++
		}
	}
	return written, nil
}

func pick(override string, fallback time.Time) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return fallback.Format(time.RFC3339)
}
