package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
)

func (s *service) Authenticate(ctx context.Context, bearer string) (*Principal, error) {
	claims, err := s.deps.Issuer.Parse(bearer)
	if err != nil {
		return nil, err
	}
	sess, err := s.deps.Sessions.Validate(ctx, claims.SessionID, bearer)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.UserID {
		return nil, ErrSessionUserMismatch
	}
	role, err := types.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      role,
		SessionID: sess.ID,
		IsTemp:    sess.IsTemp,
	}, nil
}

func (s *service) Logout(ctx context.Context, p Principal, meta audit.Meta) error {
	if err := s.deps.Sessions.Invalidate(ctx, p.SessionID); err != nil {
		return err
	}
	if _, err := s.deps.Ledger.Log(ctx, audit.Entry{
		Action:       audit.ActionLogout,
		UserID:       p.UserID,
		ResourceType: audit.ResourceSession,
		ResourceID:   p.SessionID,
		Details:      map[string]any{"sessionId": p.SessionID},
		IP:           meta.IP,
	}); err != nil {
		return err
	}
	metrics.RecordAuthEvent("logout")
	logger.From(ctx).Info("logged out",
		logger.Component("auth"), logger.UserID(p.UserID), logger.SessionID(p.SessionID))
	return nil
}

func (s *service) Profile(ctx context.Context, userID string) (*identity.PublicUser, error) {
	u, err := s.deps.Identity.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("auth: profile: %w", err)
	}
	view := identity.PublicView(u)
	return &view, nil
}
