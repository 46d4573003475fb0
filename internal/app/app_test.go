package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/app"
	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/bootstrap"
	"github.com/dropDatabas3/registrar/internal/config"
)

var codeRe = regexp.MustCompile(`verification code is: (\d{6})`)

// inbox guarda el último OTP por destinatario.
type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *inbox) Send(_ context.Context, to, _, _, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m := codeRe.FindStringSubmatch(text); m != nil {
		b.codes[to] = m[1]
	}
	return nil
}

func (b *inbox) code(to string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[to]
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t    *testing.T
	app  *app.App
	mail *inbox
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	cfg.Security.BcryptCost = 4
	cfg.Rate.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	mail := &inbox{codes: map[string]string{}}
	a, err := app.New(context.Background(), cfg, app.Options{Sender: mail})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = bootstrap.Run(context.Background(), bootstrap.Deps{
		Repos:    a.Store,
		Identity: a.Identity,
		Courses:  a.Courses,
		Policy:   a.Policy,
	}, bootstrap.Options{
		Admin: bootstrap.AdminConfig{Username: "admin", Email: "admin@university.edu", Password: "Admin@123"},
		Demo:  true,
	})
	require.NoError(t, err)
	return &harness{t: t, app: a, mail: mail}
}

func (h *harness) do(method, path, token string, body any) (int, envelope) {
	h.t.Helper()
	return h.doWith(method, path, token, body, nil)
}

// doWith permite tocar el request (headers, RemoteAddr) antes de enviarlo.
func (h *harness) doWith(method, path, token string, body any, edit func(*http.Request)) (int, envelope) {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if edit != nil {
		edit(req)
	}
	rec := httptest.NewRecorder()
	h.app.Handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (h *harness) decode(raw json.RawMessage, v any) {
	h.t.Helper()
	require.NoError(h.t, json.Unmarshal(raw, v))
}

// login completa password + OTP y devuelve el bearer.
func (h *harness) login(email, pwd string) string {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": pwd})
	require.Equal(h.t, http.StatusOK, status, env.Message)
	var ch struct {
		UserID        string `json:"userId"`
		TempSessionID string `json:"tempSessionId"`
		TempToken     string `json:"tempToken"`
	}
	h.decode(env.Data, &ch)

	status, env = h.do(http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"userId":        ch.UserID,
		"otp":           h.mail.code(email),
		"tempSessionId": ch.TempSessionID,
		"tempToken":     ch.TempToken,
	})
	require.Equal(h.t, http.StatusOK, status, env.Message)
	var res struct {
		Token string `json:"token"`
	}
	h.decode(env.Data, &res)
	require.NotEmpty(h.t, res.Token)
	return res.Token
}

type courseView struct {
	ID                string `json:"id"`
	Code              string `json:"code"`
	CurrentEnrollment int    `json:"currentEnrollment"`
}

func (h *harness) courseByCode(token, code string) courseView {
	h.t.Helper()
	status, env := h.do(http.MethodGet, "/api/courses", token, nil)
	require.Equal(h.t, http.StatusOK, status)
	var cs []courseView
	h.decode(env.Data, &cs)
	for _, c := range cs {
		if c.Code == code {
			return c
		}
	}
	h.t.Fatalf("course %s not found", code)
	return courseView{}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.app.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, nil)
	status, env := h.do(http.MethodGet, "/api/courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	status, _ = h.do(http.MethodGet, "/api/courses", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestStudentRegistrationFlow(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.login("john.doe@student.edu", "Student@123")
	cs101 := h.courseByCode(tok, "CS101")

	status, env := h.do(http.MethodPost, "/api/registrations", tok, map[string]string{"courseId": cs101.ID})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var reg struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	h.decode(env.Data, &reg)
	assert.Equal(t, "registered", reg.Status)

	status, env = h.do(http.MethodPost, "/api/registrations", tok, map[string]string{"courseId": cs101.ID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Already registered for this course", env.Message)

	status, env = h.do(http.MethodGet, "/api/registrations/my", tok, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []json.RawMessage
	h.decode(env.Data, &mine)
	assert.Len(t, mine, 1)
	assert.Equal(t, 1, h.courseByCode(tok, "CS101").CurrentEnrollment)

	status, _ = h.do(http.MethodDelete, "/api/registrations/"+cs101.ID, tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, h.courseByCode(tok, "CS101").CurrentEnrollment)

	// el admin verifica la integridad de la fila
	admin := h.login("admin@university.edu", "Admin@123")
	status, env = h.do(http.MethodGet, "/api/registrations/"+reg.ID+"/verify", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var v struct {
		Valid bool `json:"valid"`
	}
	h.decode(env.Data, &v)
	assert.True(t, v.Valid)

	// logout invalida el bearer
	status, _ = h.do(http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(http.MethodGet, "/api/auth/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCapabilityDenialIsAudited(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.login("jane.smith@student.edu", "Student@123")

	status, env := h.do(http.MethodGet, "/api/admin/dashboard", tok, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, env.Success)

	logs, err := h.app.Ledger.GetLogs(context.Background(), audit.Filter{Action: string(audit.ActionUnauthorizedAccess)})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "student", logs[0].Details["attemptedRole"])
	assert.Equal(t, "/api/admin/dashboard", logs[0].Details["path"])
}

func TestFacultyRosterOwnership(t *testing.T) {
	h := newHarness(t, nil)
	smith := h.login("smith@university.edu", "Faculty@123")
	johnson := h.login("johnson@university.edu", "Faculty@123")
	cs101 := h.courseByCode(smith, "CS101")

	status, _ := h.do(http.MethodGet, "/api/registrations/course/"+cs101.ID+"/students", smith, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = h.do(http.MethodGet, "/api/registrations/course/"+cs101.ID+"/students", johnson, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := h.do(http.MethodGet, "/api/courses/my-courses", johnson, nil)
	require.Equal(t, http.StatusOK, status)
	var cs []courseView
	h.decode(env.Data, &cs)
	assert.Len(t, cs, 2)
}

func TestClosedRegistrationWindow(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.login("admin@university.edu", "Admin@123")
	past := time.Now().UTC().Add(-48 * time.Hour)

	status, env := h.do(http.MethodPut, "/api/admin/policies", admin, map[string]string{
		"key": "registration_start", "value": past.Add(-24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	status, env = h.do(http.MethodPut, "/api/admin/policies", admin, map[string]string{
		"key": "registration_end", "value": past.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = h.do(http.MethodPut, "/api/admin/policies", admin, map[string]string{
		"key": "registration_end", "value": "next tuesday",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	tok := h.login("john.doe@student.edu", "Student@123")
	cs201 := h.courseByCode(tok, "CS201")
	status, env = h.do(http.MethodPost, "/api/registrations", tok, map[string]string{"courseId": cs201.ID})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Registration closed on "+past.Format("2006-01-02"), env.Message)
}

func TestAdminDeactivatesUser(t *testing.T) {
	h := newHarness(t, nil)
	admin := h.login("admin@university.edu", "Admin@123")
	student := h.login("jane.smith@student.edu", "Student@123")

	status, env := h.do(http.MethodGet, "/api/admin/users?role=student", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var users []struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	h.decode(env.Data, &users)
	var janeID string
	for _, u := range users {
		if u.Email == "jane.smith@student.edu" {
			janeID = u.ID
		}
	}
	require.NotEmpty(t, janeID)

	status, env = h.do(http.MethodPut, "/api/admin/users/"+janeID+"/status", admin, map[string]bool{"isActive": false})
	require.Equal(t, http.StatusOK, status, env.Message)

	// la sesión abierta se invalida y no puede volver a entrar
	status, _ = h.do(http.MethodGet, "/api/auth/me", student, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "jane.smith@student.edu", "password": "Student@123",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.Login = config.Limit{Limit: 2, Window: time.Minute}
	})
	body := map[string]string{"email": "nobody@university.edu", "password": "Wrong@123"}
	for i := 0; i < 2; i++ {
		status, _ := h.do(http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, env := h.do(http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.False(t, env.Success)
}

func TestOTPRateLimit_IgnoresSpoofedForwardedFor(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.OTP = config.Limit{Limit: 3, Window: 5 * time.Minute}
	})
	status, env := h.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "john.doe@student.edu", "password": "Student@123",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var ch struct {
		UserID        string `json:"userId"`
		TempSessionID string `json:"tempSessionId"`
		TempToken     string `json:"tempToken"`
	}
	h.decode(env.Data, &ch)

	// 000000 nunca sale de otp.Generate
	body := map[string]string{
		"userId":        ch.UserID,
		"otp":           "000000",
		"tempSessionId": ch.TempSessionID,
		"tempToken":     ch.TempToken,
	}
	var got []int
	for i := 0; i < 6; i++ {
		status, _ := h.doWith(http.MethodPost, "/api/auth/verify-otp", "", body, func(r *http.Request) {
			r.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		})
		got = append(got, status)
	}
	for i, st := range got {
		if i < 3 {
			assert.NotEqual(t, http.StatusTooManyRequests, st, "request %d", i)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, st, "request %d", i)
		}
	}

	// el audit guarda la IP del socket, no la del header
	logs, err := h.app.Ledger.GetLogs(context.Background(), audit.Filter{Action: string(audit.ActionOTPFailed)})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	for _, l := range logs {
		assert.Equal(t, "192.0.2.1", l.IPAddress)
	}
}

func TestTrustedProxyForwardsClientIP(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.Server.TrustedProxies = []string{"192.0.2.1"}
	})
	status, _ := h.doWith(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@university.edu", "password": "Wrong@123",
	}, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.50")
	})
	require.Equal(t, http.StatusUnauthorized, status)

	logs, err := h.app.Ledger.GetLogs(context.Background(), audit.Filter{Action: string(audit.ActionLoginFailed)})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "203.0.113.50", logs[0].IPAddress)
}
