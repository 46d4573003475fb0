package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/identity"
	jwtx "github.com/dropDatabas3/registrar/internal/jwt"
	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/session"
	"github.com/dropDatabas3/registrar/internal/util"
)

const tempTokenBytes = 32

func (s *service) Login(ctx context.Context, email, password string, meta audit.Meta) (*LoginChallenge, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Login"),
		logger.Email(util.MaskEmail(email)),
	)

	u, failure, err := s.deps.Identity.VerifyCredentials(ctx, email, password)
	if err != nil {
		if failure == "" {
			return nil, fmt.Errorf("auth: verify credentials: %w", err)
		}
		entry := audit.Entry{
			Action:       audit.ActionLoginFailed,
			ResourceType: audit.ResourceUser,
			Details:      map[string]any{"email": email, "reason": string(failure)},
			IP:           meta.IP,
		}
		if u != nil {
			entry.UserID = u.ID
			entry.ResourceID = u.ID
		}
		if _, aerr := s.deps.Ledger.Log(ctx, entry); aerr != nil {
			return nil, aerr
		}
		metrics.RecordAuthEvent("login_failed")
		log.Info("login failed", logger.String("reason", string(failure)))
		return nil, err
	}
	log = log.With(logger.UserID(u.ID))

	code, err := s.deps.Crypto.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("auth: generate otp: %w", err)
	}
	tempToken, err := s.deps.Crypto.GenerateToken(tempTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("auth: generate temp token: %w", err)
	}

	var temp *repository.Session
	err = s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		if _, err := s.deps.Identity.Within(tx).IssueOTPChallenge(ctx, u.ID, code); err != nil {
			return err
		}
		var err error
		temp, err = s.deps.Sessions.Within(tx).Create(ctx, session.NewSession{
			UserID: u.ID,
			Token:  tempToken,
			IsTemp: true,
			TTL:    s.deps.TempSessionTTL,
		})
		if err != nil {
			return err
		}
		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionLoginAttempt,
			UserID:       u.ID,
			ResourceType: audit.ResourceSession,
			ResourceID:   temp.ID,
			Details:      map[string]any{"username": u.Username, "mfaRequired": true},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		log.Error("login step 1 failed", logger.Err(err))
		return nil, err
	}

	s.deliverOTP(ctx, u, code)
	metrics.RecordAuthEvent("otp_issued")
	log.Info("otp challenge issued", logger.SessionID(temp.ID))

	return &LoginChallenge{
		MFARequired:   true,
		UserID:        u.ID,
		TempSessionID: temp.ID,
		TempToken:     tempToken,
	}, nil
}

// deliverOTP nunca falla el flujo: el código ya quedó guardado y el
// usuario puede pedir un reenvío.
func (s *service) deliverOTP(ctx context.Context, u *repository.User, code string) {
	if s.deps.OTP == nil {
		return
	}
	err := s.deps.OTP.SendOTP(ctx, u.Email, code, u.Username)
	metrics.RecordEmail("otp", err)
	if err != nil {
		logger.From(ctx).Warn("otp delivery failed",
			logger.Component("auth.login"), logger.UserID(u.ID), logger.Err(err))
	}
}

// checkTempSession valida que la sesión temporal exista, siga viva y sea
// del usuario.
func (s *service) checkTempSession(ctx context.Context, userID, sessionID, token string) error {
	var (
		sess *repository.Session
		err  error
	)
	if token != "" {
		sess, err = s.deps.Sessions.Validate(ctx, sessionID, token)
	} else {
		sess, err = s.deps.Sessions.Check(ctx, sessionID)
	}
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrInvalidated) ||
			errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrTokenMismatch) {
			return fmt.Errorf("%w: %v", ErrTempSessionInvalid, err)
		}
		return err
	}
	if !sess.IsTemp || sess.UserID != userID {
		return ErrTempSessionInvalid
	}
	return nil
}

func (s *service) otpFailed(ctx context.Context, userID string, reason error, meta audit.Meta) error {
	metrics.RecordAuthEvent("otp_failed")
	_, err := s.deps.Ledger.Log(ctx, audit.Entry{
		Action:       audit.ActionOTPFailed,
		UserID:       userID,
		ResourceType: audit.ResourceUser,
		ResourceID:   userID,
		Details:      map[string]any{"reason": otpFailureReason(reason)},
		IP:           meta.IP,
	})
	return err
}

func otpFailureReason(err error) string {
	switch {
	case errors.Is(err, identity.ErrOTPExpired):
		return "OTP has expired"
	case errors.Is(err, identity.ErrOTPMismatch):
		return "Invalid OTP"
	case errors.Is(err, identity.ErrNoChallenge):
		return "No valid OTP found"
	case errors.Is(err, ErrTempSessionInvalid):
		return "Invalid temporary session"
	case errors.Is(err, identity.ErrAccountDeactivated):
		return "Account deactivated"
	}
	return "OTP verification failed"
}

func isOTPFailure(err error) bool {
	return errors.Is(err, identity.ErrOTPExpired) ||
		errors.Is(err, identity.ErrOTPMismatch) ||
		errors.Is(err, identity.ErrNoChallenge)
}

func (s *service) VerifyOTP(ctx context.Context, in VerifyOTPInput, meta audit.Meta) (*LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("VerifyOTP"),
		logger.UserID(in.UserID),
	)

	u, err := s.deps.Identity.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrInvalidRequest
		}
		return nil, err
	}
	if err := s.checkTempSession(ctx, u.ID, in.TempSessionID, in.TempToken); err != nil {
		if errors.Is(err, ErrTempSessionInvalid) {
			if aerr := s.otpFailed(ctx, u.ID, err, meta); aerr != nil {
				return nil, aerr
			}
		}
		return nil, err
	}
	if !u.IsActive {
		if aerr := s.otpFailed(ctx, u.ID, identity.ErrAccountDeactivated, meta); aerr != nil {
			return nil, aerr
		}
		return nil, identity.ErrAccountDeactivated
	}

	sid := s.deps.Crypto.GenerateSessionID()
	token, exp, err := s.deps.Issuer.Issue(jwtx.Claims{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		SessionID: sid,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}

	err = s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		// El canje del OTP va dentro de la transacción: si algo posterior
		// falla, el código sigue disponible.
		if err := s.deps.Identity.Within(tx).VerifyOTPChallenge(ctx, u.ID, in.OTP); err != nil {
			return err
		}
		sessions := s.deps.Sessions.Within(tx)
		if err := sessions.Invalidate(ctx, in.TempSessionID); err != nil {
			return err
		}
		if _, err := sessions.Create(ctx, session.NewSession{
			ID:     sid,
			UserID: u.ID,
			Token:  token,
			TTL:    s.deps.SessionTTL,
		}); err != nil {
			return err
		}
		_, err := s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionLoginSuccess,
			UserID:       u.ID,
			ResourceType: audit.ResourceSession,
			ResourceID:   sid,
			Details:      map[string]any{"username": u.Username},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		if isOTPFailure(err) {
			if aerr := s.otpFailed(ctx, u.ID, err, meta); aerr != nil {
				return nil, aerr
			}
			log.Info("otp rejected", logger.Err(err))
			return nil, err
		}
		log.Error("login step 2 failed", logger.Err(err))
		return nil, err
	}

	s.deps.Sessions.Forget(ctx, in.TempSessionID)
	metrics.RecordAuthEvent("login_success")
	log.Info("login completed", logger.SessionID(sid))
	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		SessionID: sid,
		User:      identity.PublicView(u),
	}, nil
}

func (s *service) ResendOTP(ctx context.Context, userID, tempSessionID string, meta audit.Meta) error {
	u, err := s.deps.Identity.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return ErrInvalidRequest
		}
		return err
	}
	if err := s.checkTempSession(ctx, u.ID, tempSessionID, ""); err != nil {
		return err
	}
	if !u.IsActive {
		return identity.ErrAccountDeactivated
	}

	code, err := s.deps.Crypto.GenerateOTP()
	if err != nil {
		return fmt.Errorf("auth: generate otp: %w", err)
	}
	err = s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		if _, err := s.deps.Identity.Within(tx).IssueOTPChallenge(ctx, u.ID, code); err != nil {
			return err
		}
		_, err := s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionOTPResend,
			UserID:       u.ID,
			ResourceType: audit.ResourceSession,
			ResourceID:   tempSessionID,
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		return err
	}
	s.deliverOTP(ctx, u, code)
	metrics.RecordAuthEvent("otp_issued")
	return nil
}
