package admin_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/admin"
	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/cache"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/registration"
	"github.com/dropDatabas3/registrar/internal/security/cryptocore"
	"github.com/dropDatabas3/registrar/internal/security/password"
	"github.com/dropDatabas3/registrar/internal/session"
	"github.com/dropDatabas3/registrar/internal/store/adapters/memory"
	"github.com/dropDatabas3/registrar/internal/store/storetest"
)

type env struct {
	svc      admin.Service
	store    *memory.Connection
	ledger   audit.Ledger
	sessions session.Service
	regs     registration.Service
	now      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	core, err := cryptocore.New(cryptocore.Keys{
		EncryptionKey: bytes.Repeat([]byte{11}, 32),
		IntegrityKey:  bytes.Repeat([]byte{12}, 32),
		BcryptCost:    4,
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)

	e := &env{store: memory.New(), now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return e.now }
	e.ledger = audit.New(audit.Deps{Repos: e.store, Hasher: core, Now: clock})
	e.sessions = session.NewService(session.Deps{Repos: e.store, Now: clock})
	e.regs = registration.NewService(registration.Deps{Store: e.store, Ledger: e.ledger, Crypto: core, Now: clock})
	pol := policy.NewService(policy.Deps{Store: e.store, Ledger: e.ledger, Now: clock})
	_, err = pol.InitDefaults(context.Background(), e.now, policy.Defaults{})
	require.NoError(t, err)

	e.svc = admin.NewService(admin.Deps{
		Store: e.store,
		Identity: identity.NewService(identity.Deps{
			Repos:          e.store,
			Crypto:         core,
			PasswordPolicy: password.DefaultPolicy(),
			Now:            clock,
		}),
		Sessions:      e.sessions,
		Ledger:        e.ledger,
		Policy:        pol,
		Registrations: e.regs,
		Cache:         cache.NewMemory("admin-test:"),
		Now:           clock,
	})
	return e
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	storetest.SeedUser(t, e.store, "admin", types.RoleAdmin)
	smith := storetest.SeedUser(t, e.store, "dr_smith", types.RoleFaculty)
	john := storetest.SeedUser(t, e.store, "john_doe", types.RoleStudent)
	storetest.SeedUser(t, e.store, "jane_smith", types.RoleStudent)
	cs1 := storetest.SeedCourse(t, e.store, "CS101", 1, &smith)
	storetest.SeedCourse(t, e.store, "CS102", 4, &smith)
	_, err := e.regs.Register(ctx, john, cs1, audit.Meta{})
	require.NoError(t, err)

	d, err := e.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, d.Users.Total)
	assert.Equal(t, 4, d.Users.Active)
	assert.Equal(t, 2, d.Users.ByRole[types.RoleStudent])
	assert.Equal(t, 1, d.Users.ByRole[types.RoleFaculty])
	assert.Equal(t, 2, d.Courses.Courses)
	assert.Equal(t, 5, d.Courses.Seats)
	assert.Equal(t, 1, d.Courses.Enrolled)
	assert.Equal(t, 4, d.Courses.Available)
	assert.Equal(t, 1, d.Courses.Full)
	assert.Equal(t, 1, d.Registrations.Active)
	require.NotNil(t, d.Policy)
	assert.True(t, d.Policy.Registration.Allowed)
	require.NotNil(t, d.Cache)
	assert.Equal(t, "memory", d.Cache.Driver)
}

func TestSetUserStatus(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	adminID := storetest.SeedUser(t, e.store, "admin", types.RoleAdmin)
	john := storetest.SeedUser(t, e.store, "john_doe", types.RoleStudent)

	sess, err := e.sessions.Create(ctx, session.NewSession{UserID: john, Token: "tok"})
	require.NoError(t, err)

	_, err = e.svc.SetUserStatus(ctx, adminID, adminID, false, audit.Meta{})
	assert.ErrorIs(t, err, admin.ErrSelfDeactivation)

	u, err := e.svc.SetUserStatus(ctx, adminID, john, false, audit.Meta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = e.sessions.Validate(ctx, sess.ID, "tok")
	assert.ErrorIs(t, err, session.ErrInvalidated)

	logs, err := e.ledger.GetLogs(ctx, audit.Filter{Action: string(audit.ActionUserDeactivate)})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "john_doe", logs[0].Details["targetUser"])
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, adminID, *logs[0].UserID)

	u, err = e.svc.SetUserStatus(ctx, adminID, john, true, audit.Meta{})
	require.NoError(t, err)
	assert.True(t, u.IsActive)

	_, err = e.svc.SetUserStatus(ctx, adminID, "6c1d0c8e-3f7b-4a57-8c55-1f0e9b8d2a11", true, audit.Meta{})
	assert.ErrorIs(t, err, admin.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	e := newEnv(t)
	storetest.SeedUser(t, e.store, "admin", types.RoleAdmin)
	storetest.SeedUser(t, e.store, "dr_smith", types.RoleFaculty)
	storetest.SeedUser(t, e.store, "dr_johnson", types.RoleFaculty)

	fac, err := e.svc.ListUsers(context.Background(), types.RoleFaculty)
	require.NoError(t, err)
	assert.Len(t, fac, 2)

	all, err := e.svc.ListUsers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
