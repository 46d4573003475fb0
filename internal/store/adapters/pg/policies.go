package pg

import (
	"context"
	"time"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
)

type policyRepo struct{ q querier }

func (r *policyRepo) Get(ctx context.Context, key types.PolicyKey) (*repository.PolicySetting, error) {
	var (
		p repository.PolicySetting
		k string
	)
	err := r.q.QueryRow(ctx, `SELECT key, value, updated_at FROM policies WHERE key = $1`, string(key)).
		Scan(&k, &p.Value, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr("get policy", err)
	}
	p.Key = types.PolicyKey(k)
	return &p, nil
}

func (r *policyRepo) List(ctx context.Context) ([]repository.PolicySetting, error) {
	rows, err := r.q.Query(ctx, `SELECT key, value, updated_at FROM policies ORDER BY key`)
	if err != nil {
		return nil, mapErr("list policies", err)
	}
	defer rows.Close()

	var out []repository.PolicySetting
	for rows.Next() {
		var (
			p repository.PolicySetting
			k string
		)
		if err := rows.Scan(&k, &p.Value, &p.UpdatedAt); err != nil {
			return nil, mapErr("scan policy", err)
		}
		p.Key = types.PolicyKey(k)
		out = append(out, p)
	}
	return out, mapErr("list policies", rows.Err())
}

func (r *policyRepo) Upsert(ctx context.Context, key types.PolicyKey, value string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO policies (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		string(key), value, at)
	return mapErr("upsert policy", err)
}

func (r *policyRepo) InsertIfAbsent(ctx context.Context, key types.PolicyKey, value string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO policies (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING`, string(key), value, at)
	if err != nil {
		return false, mapErr("insert policy", err)
	}
	return tag.RowsAffected() == 1, nil
}
