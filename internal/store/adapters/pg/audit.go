package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type auditRepo struct{ q querier }

const auditColumns = `id, action, user_id, resource_type, resource_id, details, ip_address, integrity_hash, "timestamp"`

func scanAudit(row pgx.Row) (*repository.AuditLog, error) {
	var (
		a   repository.AuditLog
		raw []byte
	)
	if err := row.Scan(&a.ID, &a.Action, &a.UserID, &a.ResourceType, &a.ResourceID,
		&raw, &a.IPAddress, &a.IntegrityHash, &a.Timestamp); err != nil {
		return nil, err
	}
	details, err := decodeDetails(raw)
	if err != nil {
		return nil, err
	}
	a.Details = details
	return &a, nil
}

// decodeDetails preserva los números como json.Number para que el re-hash
// canónico produzca exactamente los mismos bytes que al escribir.
func decodeDetails(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode audit details: %w", err)
	}
	return out, nil
}

func (r *auditRepo) Append(ctx context.Context, e repository.AuditLog) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("pg: encode audit details: %w", err)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO audit_logs (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9)`,
		e.ID, e.Action, e.UserID, e.ResourceType, e.ResourceID, string(raw), e.IPAddress, e.IntegrityHash, e.Timestamp)
	return mapErr("append audit", err)
}

func (r *auditRepo) GetByID(ctx context.Context, id string) (*repository.AuditLog, error) {
	a, err := scanAudit(r.q.QueryRow(ctx, `SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get audit", err)
	}
	return a, nil
}

func (r *auditRepo) List(ctx context.Context, f repository.AuditFilter) ([]repository.AuditLog, error) {
	var userID *string
	if f.UserID != "" {
		userID = &f.UserID
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+auditColumns+` FROM audit_logs
		WHERE ($1 = '' OR action = $1)
		  AND ($2::uuid IS NULL OR user_id = $2::uuid)
		ORDER BY "timestamp" DESC, id DESC
		LIMIT $3 OFFSET $4`, f.Action, userID, limit, f.Offset)
	if err != nil {
		return nil, mapErr("list audit", err)
	}
	defer rows.Close()

	var out []repository.AuditLog
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, mapErr("scan audit", err)
		}
		out = append(out, *a)
	}
	return out, mapErr("list audit", rows.Err())
}
