package auth

import (
	"context"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

func (s *service) Register(ctx context.Context, in RegisterInput, meta audit.Meta) (*identity.PublicUser, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.register"),
		logger.Op("Register"),
	)

	role := in.Role
	if role == "" {
		role = types.RoleStudent
	}
	// Los administradores se crean por bootstrap o por otro admin.
	if role == types.RoleAdmin {
		return nil, ErrRoleNotAllowed
	}

	var created *repository.User
	err := s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		u, err := s.deps.Identity.Within(tx).CreateUser(ctx, identity.NewUser{
			Username: in.Username,
			Email:    in.Email,
			Password: in.Password,
			Role:     role,
		})
		if err != nil {
			return err
		}
		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionUserRegister,
			UserID:       u.ID,
			ResourceType: audit.ResourceUser,
			ResourceID:   u.ID,
			Details: map[string]any{
				"username": u.Username,
				"email":    u.Email,
				"role":     string(u.Role),
			},
			IP: meta.IP,
		})
		created = u
		return err
	})
	if err != nil {
		log.Debug("register failed", logger.Err(err))
		return nil, err
	}

	view := identity.PublicView(created)
	return &view, nil
}
