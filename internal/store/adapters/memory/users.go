package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type userRepo struct{ v view }

func copyUser(u repository.User) repository.User {
	if u.OTP != nil {
		ch := *u.OTP
		u.OTP = &ch
	}
	return u
}

func (s *state) userTaken(username, email string) bool {
	for _, u := range s.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	var out repository.User
	err := r.v.do(func(s *state) error {
		if _, ok := s.users[in.ID]; ok || s.userTaken(in.Username, in.Email) {
			return repository.ErrConflict
		}
		u := repository.User{
			ID:           in.ID,
			Username:     in.Username,
			Email:        strings.ToLower(in.Email),
			PasswordHash: in.PasswordHash,
			Role:         in.Role,
			IsActive:     true,
			CreatedAt:    in.CreatedAt,
			UpdatedAt:    in.CreatedAt,
		}
		s.users[u.ID] = u
		out = copyUser(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *userRepo) get(match func(repository.User) bool) (*repository.User, error) {
	var out *repository.User
	err := r.v.do(func(s *state) error {
		for _, u := range s.users {
			if match(u) {
				cp := copyUser(u)
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	return r.get(func(u repository.User) bool { return u.ID == id })
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	return r.get(func(u repository.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *userRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var ok bool
	err := r.v.do(func(s *state) error {
		ok = s.userTaken(username, email)
		return nil
	})
	return ok, err
}

func (r *userRepo) List(ctx context.Context, f repository.ListUsersFilter) ([]repository.User, error) {
	var out []repository.User
	err := r.v.do(func(s *state) error {
		for _, u := range s.users {
			if f.Role == "" || u.Role == f.Role {
				out = append(out, copyUser(u))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *userRepo) update(id string, fn func(u *repository.User) error) error {
	return r.v.do(func(s *state) error {
		u, ok := s.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		u = copyUser(u)
		if err := fn(&u); err != nil {
			return err
		}
		s.users[id] = u
		return nil
	})
}

func (r *userRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.update(id, func(u *repository.User) error {
		u.IsActive = active
		return nil
	})
}

func (r *userRepo) SetOTPChallenge(ctx context.Context, id string, ch repository.OTPChallenge) error {
	return r.update(id, func(u *repository.User) error {
		u.OTP = &ch
		return nil
	})
}

func (r *userRepo) ConsumeOTPChallenge(ctx context.Context, id, otpHash string) error {
	return r.update(id, func(u *repository.User) error {
		if u.OTP == nil || u.OTP.Used || u.OTP.Hash != otpHash {
			return repository.ErrPreconditionFailed
		}
		u.OTP.Used = true
		return nil
	})
}
