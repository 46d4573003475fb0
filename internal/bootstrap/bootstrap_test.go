package bootstrap_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/bootstrap"
	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/identity"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/security/cryptocore"
	"github.com/dropDatabas3/registrar/internal/security/password"
	"github.com/dropDatabas3/registrar/internal/store/adapters/memory"
)

func newDeps(t *testing.T) (bootstrap.Deps, *memory.Connection) {
	t.Helper()
	core, err := cryptocore.New(cryptocore.Keys{
		EncryptionKey: bytes.Repeat([]byte{1}, 32),
		IntegrityKey:  bytes.Repeat([]byte{2}, 32),
		BcryptCost:    4,
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)

	st := memory.New()
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	ledger := audit.New(audit.Deps{Repos: st, Hasher: core, Now: now})
	return bootstrap.Deps{
		Repos: st,
		Identity: identity.NewService(identity.Deps{
			Repos: st, Crypto: core, PasswordPolicy: password.DefaultPolicy(), Now: now,
		}),
		Courses: course.NewService(course.Deps{Store: st, Ledger: ledger, Now: now}),
		Policy:  policy.NewService(policy.Deps{Store: st, Ledger: ledger, Now: now}),
		Now:     now,
	}, st
}

func TestRun_SeedsEverythingOnce(t *testing.T) {
	ctx := context.Background()
	d, st := newDeps(t)
	opts := bootstrap.Options{
		Admin: bootstrap.AdminConfig{Username: "admin", Email: "admin@university.edu", Password: "Admin@123"},
		Demo:  true,
	}

	res, err := bootstrap.Run(ctx, d, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, res.PoliciesCreated)
	assert.NotEmpty(t, res.AdminID)
	require.NotNil(t, res.Demo)
	assert.Equal(t, len(bootstrap.DemoUsers), res.Demo.Users)
	assert.Equal(t, 5, res.Demo.Courses)

	faculty, err := st.Users().List(ctx, repository.ListUsersFilter{Role: types.RoleFaculty})
	require.NoError(t, err)
	assert.Len(t, faculty, 2)

	logs, err := st.AuditLogs().List(ctx, repository.AuditFilter{Action: string(audit.ActionCourseCreate)})
	require.NoError(t, err)
	require.Len(t, logs, 5)
	require.NotNil(t, logs[0].UserID)
	assert.Equal(t, res.AdminID, *logs[0].UserID)

	again, err := bootstrap.Run(ctx, d, opts)
	require.NoError(t, err)
	assert.Zero(t, again.PoliciesCreated)
	assert.Empty(t, again.AdminID)
	assert.Zero(t, again.Demo.Users)
	assert.Zero(t, again.Demo.Courses)
}

func TestEnsureAdmin_NoCredentials(t *testing.T) {
	d, st := newDeps(t)
	_, err := bootstrap.EnsureAdmin(context.Background(), bootstrap.AdminConfig{
		Identity: d.Identity,
		Repos:    st,
	})
	assert.ErrorIs(t, err, bootstrap.ErrNoAdminCredentials)
}

func TestEnsureAdmin_WeakPassword(t *testing.T) {
	d, st := newDeps(t)
	_, err := bootstrap.EnsureAdmin(context.Background(), bootstrap.AdminConfig{
		Identity: d.Identity,
		Repos:    st,
		Email:    "root@university.edu",
		Password: "short",
	})
	assert.ErrorIs(t, err, identity.ErrWeakPassword)

	has, err := bootstrap.HasAdmin(context.Background(), st)
	require.NoError(t, err)
	assert.False(t, has)
}
