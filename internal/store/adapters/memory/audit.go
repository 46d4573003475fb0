package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type auditRepo struct{ v view }

// normalizeDetails replica lo que hace una columna JSONB: lo que se lee
// es lo que se puede serializar, con números como json.Number.
func normalizeDetails(in map[string]any) (map[string]any, error) {
	if in == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("memory: encode audit details: %w", err)
	}
	out := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("memory: decode audit details: %w", err)
	}
	return out, nil
}

func copyAudit(a repository.AuditLog) repository.AuditLog {
	if a.UserID != nil {
		id := *a.UserID
		a.UserID = &id
	}
	// Details ya está normalizado y nunca se muta; alcanza con un copy superficial.
	d := make(map[string]any, len(a.Details))
	for k, v := range a.Details {
		d[k] = v
	}
	a.Details = d
	return a
}

func (r *auditRepo) Append(ctx context.Context, e repository.AuditLog) error {
	details, err := normalizeDetails(e.Details)
	if err != nil {
		return err
	}
	e.Details = details
	return r.v.do(func(s *state) error {
		for _, other := range s.audit {
			if other.ID == e.ID {
				return repository.ErrConflict
			}
		}
		s.audit = append(s.audit, copyAudit(e))
		return nil
	})
}

func (r *auditRepo) GetByID(ctx context.Context, id string) (*repository.AuditLog, error) {
	var out repository.AuditLog
	err := r.v.do(func(s *state) error {
		for _, a := range s.audit {
			if a.ID == id {
				out = copyAudit(a)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *auditRepo) List(ctx context.Context, f repository.AuditFilter) ([]repository.AuditLog, error) {
	var matched []repository.AuditLog
	err := r.v.do(func(s *state) error {
		for _, a := range s.audit {
			if f.Action != "" && a.Action != f.Action {
				continue
			}
			if f.UserID != "" && (a.UserID == nil || *a.UserID != f.UserID) {
				continue
			}
			matched = append(matched, copyAudit(a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
