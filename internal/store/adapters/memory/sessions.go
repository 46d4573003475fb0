package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type sessionRepo struct{ v view }

func (r *sessionRepo) Create(ctx context.Context, sess repository.Session) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.sessions[sess.ID]; ok {
			return repository.ErrConflict
		}
		if _, ok := s.users[sess.UserID]; !ok {
			return repository.ErrInvalidInput
		}
		s.sessions[sess.ID] = sess
		return nil
	})
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*repository.Session, error) {
	var out repository.Session
	err := r.v.do(func(s *state) error {
		sess, ok := s.sessions[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) Invalidate(ctx context.Context, id string) error {
	return r.v.do(func(s *state) error {
		if sess, ok := s.sessions[id]; ok {
			sess.IsValid = false
			s.sessions[id] = sess
		}
		return nil
	})
}

func (r *sessionRepo) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	n := 0
	err := r.v.do(func(s *state) error {
		for id, sess := range s.sessions {
			if sess.UserID == userID && sess.IsValid {
				sess.IsValid = false
				s.sessions[id] = sess
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	n := 0
	err := r.v.do(func(s *state) error {
		for id, sess := range s.sessions {
			if sess.Expired(now) {
				delete(s.sessions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
