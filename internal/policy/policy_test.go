package policy_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/security/cryptocore"
	"github.com/dropDatabas3/registrar/internal/store/adapters/memory"
)

var (
	start = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2026, 1, 20, 23, 59, 59, 0, time.UTC)
	drop  = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
)

func window() policy.Settings {
	return policy.Settings{
		types.PolicyRegistrationStart: start.Format(time.RFC3339),
		types.PolicyRegistrationEnd:   end.Format(time.RFC3339),
		types.PolicyDropDeadline:      drop.Format(time.RFC3339),
	}
}

func TestEvaluateRegistration(t *testing.T) {
	cases := []struct {
		name    string
		now     time.Time
		allowed bool
		msg     string
	}{
		{"before", start.Add(-time.Second), false, "Registration opens on 2026-01-05"},
		{"at start", start, true, policy.MsgRegistrationOpen},
		{"inside", start.Add(72 * time.Hour), true, policy.MsgRegistrationOpen},
		{"at end", end, true, policy.MsgRegistrationOpen},
		{"after", end.Add(time.Second), false, "Registration closed on 2026-01-20"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ws, err := policy.EvaluateRegistration(window(), tc.now)
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, ws.Allowed)
			assert.Equal(t, tc.msg, ws.Message)
		})
	}
}

func TestEvaluateRegistration_MissingBound(t *testing.T) {
	s := window()
	delete(s, types.PolicyRegistrationEnd)
	ws, err := policy.EvaluateRegistration(s, end.Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ws.Allowed)
	assert.Equal(t, "No registration window configured", ws.Message)
}

func TestEvaluateRegistration_CorruptValue(t *testing.T) {
	s := window()
	s[types.PolicyRegistrationStart] = "next monday"
	_, err := policy.EvaluateRegistration(s, start)
	assert.ErrorIs(t, err, policy.ErrInvalidValue)
}

func TestEvaluateDrop(t *testing.T) {
	ws, err := policy.EvaluateDrop(window(), drop)
	require.NoError(t, err)
	assert.True(t, ws.Allowed)
	assert.Equal(t, "Drop allowed until 2026-02-01", ws.Message)

	ws, err = policy.EvaluateDrop(window(), drop.Add(time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ws.Allowed)
	assert.Equal(t, "Drop deadline passed on 2026-02-01", ws.Message)

	ws, err = policy.EvaluateDrop(policy.Settings{}, drop.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ws.Allowed)
	assert.Equal(t, "No drop deadline configured", ws.Message)
}

func newService(t *testing.T) (policy.Service, audit.Ledger, *memory.Connection) {
	t.Helper()
	core, err := cryptocore.New(cryptocore.Keys{
		EncryptionKey: bytes.Repeat([]byte{3}, 32),
		IntegrityKey:  bytes.Repeat([]byte{4}, 32),
		BcryptCost:    4,
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)

	st := memory.New()
	clock := func() time.Time { return start }
	ledger := audit.New(audit.Deps{Repos: st, Hasher: core, Now: clock})
	return policy.NewService(policy.Deps{Store: st, Ledger: ledger, Now: clock}), ledger, st
}

func TestSetPolicy_AuditsAndClosesWindow(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newService(t)

	_, err := svc.InitDefaults(ctx, start, policy.Defaults{})
	require.NoError(t, err)

	closed := start.Add(-time.Hour).Format(time.RFC3339)
	set, err := svc.SetPolicy(ctx, types.PolicyRegistrationEnd, closed, "8d1e2f7a-0000-4000-8000-000000000001", audit.Meta{IP: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, closed, set.Value)

	ws, err := svc.IsRegistrationOpen(ctx, start)
	require.NoError(t, err)
	assert.False(t, ws.Allowed)
	assert.Contains(t, ws.Message, "Registration closed on")

	logs, err := ledger.GetLogs(ctx, audit.Filter{Action: string(audit.ActionPolicyUpdate)})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "registration_end", logs[0].ResourceID)
	assert.Equal(t, closed, logs[0].Details["value"])
}

func TestSetPolicy_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newService(t)

	_, err := svc.SetPolicy(ctx, "semester_start", start.Format(time.RFC3339), "", audit.Meta{})
	assert.ErrorIs(t, err, policy.ErrInvalidKey)

	_, err = svc.SetPolicy(ctx, types.PolicyDropDeadline, "2026-13-45", "", audit.Meta{})
	assert.ErrorIs(t, err, policy.ErrInvalidValue)

	logs, err := ledger.GetLogs(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestInitDefaults_KeepsExisting(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	n, err := svc.InitDefaults(ctx, start, policy.Defaults{DropDeadline: drop.Format(time.RFC3339)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.InitDefaults(ctx, start.Add(24*time.Hour), policy.Defaults{})
	require.NoError(t, err)
	assert.Zero(t, n)

	rows, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	st, err := svc.Status(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, st.Registration.Allowed)
	assert.Equal(t, start.Add(policy.DefaultRegistrationSpan).Format(time.RFC3339), st.Registration.End)
	assert.Equal(t, "Drop allowed until 2026-02-01", st.Drop.Message)

	_, err = svc.InitDefaults(ctx, start, policy.Defaults{RegistrationStart: "soon"})
	assert.ErrorIs(t, err, policy.ErrInvalidValue)
}
