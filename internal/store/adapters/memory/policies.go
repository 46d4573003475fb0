package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
)

type policyRepo struct{ v view }

func (r *policyRepo) Get(ctx context.Context, key types.PolicyKey) (*repository.PolicySetting, error) {
	var out repository.PolicySetting
	err := r.v.do(func(s *state) error {
		p, ok := s.policies[key]
		if !ok {
			return repository.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *policyRepo) List(ctx context.Context) ([]repository.PolicySetting, error) {
	var out []repository.PolicySetting
	err := r.v.do(func(s *state) error {
		for _, p := range s.policies {
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, err
}

func (r *policyRepo) Upsert(ctx context.Context, key types.PolicyKey, value string, at time.Time) error {
	return r.v.do(func(s *state) error {
		s.policies[key] = repository.PolicySetting{Key: key, Value: value, UpdatedAt: at}
		return nil
	})
}

func (r *policyRepo) InsertIfAbsent(ctx context.Context, key types.PolicyKey, value string, at time.Time) (bool, error) {
	wrote := false
	err := r.v.do(func(s *state) error {
		if _, ok := s.policies[key]; ok {
			return nil
		}
		s.policies[key] = repository.PolicySetting{Key: key, Value: value, UpdatedAt: at}
		wrote = true
		return nil
	})
	return wrote, err
}
