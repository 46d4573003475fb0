package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type sessionRepo struct{ q querier }

func (r *sessionRepo) Create(ctx context.Context, s repository.Session) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, is_temp, is_valid, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.TokenHash, s.IsTemp, s.IsValid, s.ExpiresAt, s.CreatedAt)
	return mapErr("create session", err)
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*repository.Session, error) {
	var s repository.Session
	err := r.q.QueryRow(ctx, `
		SELECT id, user_id, token_hash, is_temp, is_valid, expires_at, created_at
		FROM sessions WHERE id = $1`, id).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.IsTemp, &s.IsValid, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, mapErr("get session", err)
	}
	return &s, nil
}

func (r *sessionRepo) Invalidate(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `UPDATE sessions SET is_valid = FALSE WHERE id = $1`, id)
	if err = mapErr("invalidate session", err); err != nil && !repository.IsNotFound(err) {
		return err
	}
	return nil
}

func (r *sessionRepo) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.q.Exec(ctx, `UPDATE sessions SET is_valid = FALSE WHERE user_id = $1 AND is_valid`, userID)
	if err != nil {
		return 0, mapErr("invalidate user sessions", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr("delete expired sessions", err)
	}
	return int(tag.RowsAffected()), nil
}
