package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/admin"
	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/http/helpers"
	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/validation"
)

// Admin maneja /api/admin.
type Admin struct {
	Service admin.Service
	Policy  policy.Service
	Ledger  audit.Ledger
	Now     func() time.Time
}

func (c *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := c.Service.Dashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, d)
}

// Users lista cuentas; ?role= filtra.
func (c *Admin) Users(w http.ResponseWriter, r *http.Request) {
	var role types.Role
	if raw := r.URL.Query().Get("role"); raw != "" {
		parsed, err := types.ParseRole(raw)
		if err != nil {
			fail(w, r, invalid("unknown role"))
			return
		}
		role = parsed
	}
	users, err := c.Service.ListUsers(r.Context(), role)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, users)
}

type userStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (c *Admin) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "userID")
	if !validation.ID(target) {
		fail(w, r, invalid("invalid user id"))
		return
	}
	var req userStatusRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.IsActive == nil {
		fail(w, r, invalid("isActive is required"))
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	u, err := c.Service.SetUserStatus(r.Context(), p.UserID, target, *req.IsActive, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	msg := "User activated successfully"
	if !*req.IsActive {
		msg = "User deactivated successfully"
	}
	helpers.WriteMessage(w, http.StatusOK, msg, u)
}

type policyView struct {
	Key       types.PolicyKey `json:"key"`
	Value     string          `json:"value"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func toPolicyView(s repository.PolicySetting) policyView {
	return policyView{Key: s.Key, Value: s.Value, UpdatedAt: s.UpdatedAt}
}

type policiesResponse struct {
	Settings []policyView   `json:"settings"`
	Status   *policy.Status `json:"status,omitempty"`
}

func (c *Admin) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Policies lista las claves y su evaluación actual. Si algún valor está
// corrupto se devuelven igual los valores crudos.
func (c *Admin) Policies(w http.ResponseWriter, r *http.Request) {
	settings, err := c.Policy.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := policiesResponse{Settings: make([]policyView, 0, len(settings))}
	for _, s := range settings {
		out.Settings = append(out.Settings, toPolicyView(s))
	}
	if st, err := c.Policy.Status(r.Context(), c.now()); err == nil {
		out.Status = st
	}
	helpers.WriteData(w, http.StatusOK, out)
}

type policyRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (c *Admin) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req policyRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	key := types.PolicyKey(strings.TrimSpace(req.Key))
	if !key.IsValid() {
		fail(w, r, invalid("key must be registration_start, registration_end or drop_deadline"))
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	s, err := c.Policy.SetPolicy(r.Context(), key, strings.TrimSpace(req.Value), p.UserID, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Policy updated successfully", toPolicyView(*s))
}

// AuditLogView es una entrada de auditoría tal como se expone.
type AuditLogView struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	UserID        *string        `json:"userId"`
	ResourceType  string         `json:"resourceType"`
	ResourceID    string         `json:"resourceId"`
	Details       map[string]any `json:"details"`
	IPAddress     string         `json:"ipAddress"`
	IntegrityHash string         `json:"integrityHash"`
	Timestamp     time.Time      `json:"timestamp"`
}

func queryInt(r *http.Request, name string, def, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}

// AuditLogs lista el ledger. ?action=&userId=&limit=&offset=
func (c *Admin) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", audit.DefaultLimit, audit.MaxLimit)
	if !ok {
		fail(w, r, invalid(fmt.Sprintf("limit must be between 0 and %d", audit.MaxLimit)))
		return
	}
	offset, ok := queryInt(r, "offset", 0, 1<<30)
	if !ok {
		fail(w, r, invalid("offset must be a non-negative integer"))
		return
	}
	q := r.URL.Query()
	logs, err := c.Ledger.GetLogs(r.Context(), audit.Filter{
		Action: strings.TrimSpace(q.Get("action")),
		UserID: strings.TrimSpace(q.Get("userId")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]AuditLogView, 0, len(logs))
	for _, l := range logs {
		out = append(out, AuditLogView{
			ID:            l.ID,
			Action:        l.Action,
			UserID:        l.UserID,
			ResourceType:  l.ResourceType,
			ResourceID:    l.ResourceID,
			Details:       l.Details,
			IPAddress:     l.IPAddress,
			IntegrityHash: l.IntegrityHash,
			Timestamp:     l.Timestamp,
		})
	}
	helpers.WriteData(w, http.StatusOK, out)
}

func (c *Admin) VerifyAuditLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "logID")
	if !validation.ID(id) {
		fail(w, r, invalid("invalid log id"))
		return
	}
	v, err := c.Ledger.Verify(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, v)
}
