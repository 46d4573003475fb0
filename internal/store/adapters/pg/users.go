package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
)

type userRepo struct{ q querier }

const userColumns = `id, username, email, password_hash, role, is_active,
	otp_hash, otp_expiry, otp_used, created_at, updated_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var (
		u         repository.User
		role      string
		otpHash   *string
		otpExpiry *time.Time
		otpUsed   bool
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.IsActive,
		&otpHash, &otpExpiry, &otpUsed, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = types.Role(role)
	if otpHash != nil && otpExpiry != nil {
		u.OTP = &repository.OTPChallenge{Hash: *otpHash, ExpiresAt: *otpExpiry, Used: otpUsed}
	}
	return &u, nil
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $6)
		RETURNING `+userColumns,
		in.ID, in.Username, in.Email, in.PasswordHash, string(in.Role), in.CreatedAt)
	u, err := scanUser(row)
	if err != nil {
		return nil, mapErr("create user", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get user", err)
	}
	return u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, mapErr("get user by email", err)
	}
	return u, nil
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR lower(email) = lower($2))`,
		username, email).Scan(&ok)
	if err != nil {
		return false, mapErr("user exists", err)
	}
	return ok, nil
}

func (r *userRepo) List(ctx context.Context, filter repository.ListUsersFilter) ([]repository.User, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1 = '' OR role = $1)
		ORDER BY created_at DESC, id`, string(filter.Role))
	if err != nil {
		return nil, mapErr("list users", err)
	}
	defer rows.Close()

	var out []repository.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapErr("scan user", err)
		}
		out = append(out, *u)
	}
	return out, mapErr("list users", rows.Err())
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.q.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return mapErr("set active", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) SetOTPChallenge(ctx context.Context, id string, ch repository.OTPChallenge) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users SET otp_hash = $2, otp_expiry = $3, otp_used = $4, updated_at = NOW()
		WHERE id = $1`, id, ch.Hash, ch.ExpiresAt, ch.Used)
	if err != nil {
		return mapErr("set otp", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) ConsumeOTPChallenge(ctx context.Context, id, otpHash string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users SET otp_used = TRUE, updated_at = NOW()
		WHERE id = $1 AND otp_hash = $2 AND otp_used = FALSE`, id, otpHash)
	if err != nil {
		return mapErr("consume otp", err)
	}
	if tag.RowsAffected() == 0 {
		return guardMiss(ctx, r.q, "users", id, "consume otp")
	}
	return nil
}
