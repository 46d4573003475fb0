// Package admin agrupa las operaciones de administración: dashboard y
// gestión de cuentas.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/cache"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/registration"
	"github.com/dropDatabas3/registrar/internal/session"
)

var (
	ErrSelfDeactivation = errors.New("cannot deactivate your own account")
	ErrUserNotFound     = errors.New("user not found")
)

type UserCounts struct {
	Total    int                `json:"total"`
	Active   int                `json:"active"`
	Inactive int                `json:"inactive"`
	ByRole   map[types.Role]int `json:"byRole"`
}

type CourseTotals struct {
	Courses   int `json:"courses"`
	Seats     int `json:"seats"`
	Enrolled  int `json:"enrolled"`
	Available int `json:"available"`
	Full      int `json:"full"`
}

type Dashboard struct {
	Users         UserCounts          `json:"users"`
	Courses       CourseTotals        `json:"courses"`
	Registrations *registration.Stats `json:"registrations"`
	Policy        *policy.Status      `json:"policy"`
	Cache         *cache.Stats        `json:"cache,omitempty"`
}

type Service interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	ListUsers(ctx context.Context, role types.Role) ([]identity.PublicUser, error)

	// SetUserStatus activa o desactiva una cuenta. Desactivar cierra todas
	// sus sesiones.
	SetUserStatus(ctx context.Context, actorID, targetID string, active bool, meta audit.Meta) (*identity.PublicUser, error)
}

type Deps struct {
	Store         repository.DataAccess
	Identity      identity.Service
	Sessions      session.Service
	Ledger        audit.Ledger
	Policy        policy.Service
	Registrations registration.Service
	// Cache opcional; si está, el dashboard reporta sus stats.
	Cache cache.Client
	Now   func() time.Time
}

type service struct {
	deps Deps
}

func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{deps: d}
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.deps.Identity.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := &Dashboard{Users: UserCounts{ByRole: map[types.Role]int{}}}
	for _, r := range types.Roles {
		out.Users.ByRole[r] = 0
	}
	for _, u := range users {
		out.Users.Total++
		out.Users.ByRole[u.Role]++
		if u.IsActive {
			out.Users.Active++
		} else {
			out.Users.Inactive++
		}
	}

	courses, err := s.deps.Store.Courses().List(ctx, repository.CourseFilter{})
	if err != nil {
		return nil, fmt.Errorf("admin: list courses: %w", err)
	}
	for _, c := range courses {
		out.Courses.Courses++
		out.Courses.Seats += c.MaxSeats
		out.Courses.Enrolled += c.CurrentEnrollment
		out.Courses.Available += c.AvailableSeats()
		if !c.IsAvailable() {
			out.Courses.Full++
		}
	}

	if out.Registrations, err = s.deps.Registrations.Stats(ctx); err != nil {
		return nil, err
	}
	if out.Policy, err = s.deps.Policy.Status(ctx, s.deps.Now()); err != nil {
		// una política corrupta no debe tumbar el dashboard
		logger.From(ctx).Warn("policy status unavailable",
			logger.Component("admin"), logger.Op("Dashboard"), logger.Err(err))
		out.Policy = nil
	}
	if s.deps.Cache != nil {
		if st, err := s.deps.Cache.Stats(ctx); err == nil {
			out.Cache = &st
		} else {
			logger.From(ctx).Warn("cache stats unavailable",
				logger.Component("admin"), logger.Op("Dashboard"), logger.Err(err))
		}
	}
	return out, nil
}

func (s *service) ListUsers(ctx context.Context, role types.Role) ([]identity.PublicUser, error) {
	users, err := s.deps.Identity.List(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make([]identity.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, identity.PublicView(&users[i]))
	}
	return out, nil
}

func (s *service) SetUserStatus(ctx context.Context, actorID, targetID string, active bool, meta audit.Meta) (*identity.PublicUser, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin"),
		logger.Op("SetUserStatus"),
		logger.UserID(targetID),
	)
	if !active && actorID == targetID {
		return nil, ErrSelfDeactivation
	}

	var (
		target *repository.User
		closed int
	)
	err := s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		ids := s.deps.Identity.Within(tx)
		if err := ids.SetActive(ctx, targetID, active); err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		u, err := ids.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		target = u

		action := audit.ActionUserActivate
		if !active {
			action = audit.ActionUserDeactivate
			if closed, err = s.deps.Sessions.Within(tx).InvalidateAllForUser(ctx, targetID); err != nil {
				return err
			}
		}
		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       action,
			UserID:       actorID,
			ResourceType: audit.ResourceUser,
			ResourceID:   targetID,
			Details:      map[string]any{"targetUser": u.Username},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !active {
		s.deps.Sessions.ForgetUser(ctx, targetID)
	}
	log.Info("user status changed", logger.Bool("active", active), logger.Count(closed))
	view := identity.PublicView(target)
	return &view, nil
}
