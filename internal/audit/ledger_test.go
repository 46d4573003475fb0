package audit_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/security/cryptocore"
	"github.com/dropDatabas3/registrar/internal/store/adapters/memory"
)

var now = time.Date(2026, 3, 2, 14, 30, 0, 123456789, time.UTC)

func newCore(t *testing.T) *cryptocore.Core {
	t.Helper()
	c, err := cryptocore.New(cryptocore.Keys{
		EncryptionKey: bytes.Repeat([]byte{1}, 32),
		IntegrityKey:  bytes.Repeat([]byte{2}, 32),
		BcryptCost:    4,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func newLedger(t *testing.T, repos repository.Repositories) audit.Ledger {
	return audit.New(audit.Deps{Repos: repos, Hasher: newCore(t), Now: func() time.Time { return now }})
}

func TestLogAndVerify(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, memory.New())

	entry, err := l.Log(ctx, audit.Entry{
		Action:       audit.ActionLoginFailed,
		ResourceType: audit.ResourceUser,
		Details:      map[string]any{"email": "a@b.edu", "reason": "User not found"},
		IP:           "10.0.0.7",
	})
	require.NoError(t, err)
	assert.Nil(t, entry.UserID)
	assert.Len(t, entry.IntegrityHash, 64)
	assert.Equal(t, now.Truncate(time.Microsecond), entry.Timestamp)

	v, err := l.Verify(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, audit.MsgLogVerified, v.Message)
}

func TestVerify_NotFound(t *testing.T) {
	_, err := newLedger(t, memory.New()).Verify(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestLog_RequiresAction(t *testing.T) {
	_, err := newLedger(t, memory.New()).Log(context.Background(), audit.Entry{})
	assert.ErrorIs(t, err, audit.ErrInvalidEntry)
}

// tamperRepos altera las entradas al leerlas, como si alguien hubiese
// editado la fila en la base.
type tamperRepos struct {
	repository.Repositories
	mutate func(*repository.AuditLog)
}

func (r tamperRepos) AuditLogs() repository.AuditLogRepository {
	return tamperAudit{r.Repositories.AuditLogs(), r.mutate}
}

type tamperAudit struct {
	repository.AuditLogRepository
	mutate func(*repository.AuditLog)
}

func (a tamperAudit) GetByID(ctx context.Context, id string) (*repository.AuditLog, error) {
	e, err := a.AuditLogRepository.GetByID(ctx, id)
	if err == nil {
		a.mutate(e)
	}
	return e, err
}

func TestVerify_DetectsTampering(t *testing.T) {
	cases := map[string]func(*repository.AuditLog){
		"details":   func(e *repository.AuditLog) { e.Details["reason"] = "Invalid password" },
		"action":    func(e *repository.AuditLog) { e.Action = "LOGIN_SUCCESS" },
		"timestamp": func(e *repository.AuditLog) { e.Timestamp = e.Timestamp.Add(time.Second) },
		"actor": func(e *repository.AuditLog) {
			id := "11111111-1111-1111-1111-111111111111"
			e.UserID = &id
		},
		"hash": func(e *repository.AuditLog) {
			first := "a"
			if e.IntegrityHash[0] == 'a' {
				first = "b"
			}
			e.IntegrityHash = first + e.IntegrityHash[1:]
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			core := newCore(t)
			writer := audit.New(audit.Deps{Repos: store, Hasher: core, Now: func() time.Time { return now }})
			entry, err := writer.Log(ctx, audit.Entry{
				Action:  audit.ActionLoginFailed,
				Details: map[string]any{"email": "a@b.edu", "reason": "User not found"},
			})
			require.NoError(t, err)

			reader := audit.New(audit.Deps{Repos: tamperRepos{store, mutate}, Hasher: core})
			v, err := reader.Verify(ctx, entry.ID)
			require.NoError(t, err)
			assert.False(t, v.Valid)
			assert.Equal(t, audit.MsgLogTampered, v.Message)
		})
	}
}

func TestGetLogs_FiltersAndClamps(t *testing.T) {
	ctx := context.Background()
	tick := now
	l := audit.New(audit.Deps{Repos: memory.New(), Hasher: newCore(t), Now: func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}})
	uid := "5b0e7c4a-4a83-4b0f-9d6e-0b9d6f0f6a11"
	for i := 0; i < 60; i++ {
		_, err := l.Log(ctx, audit.Entry{Action: audit.ActionLoginSuccess, UserID: uid, Details: map[string]any{"n": i}})
		require.NoError(t, err)
	}
	_, err := l.Log(ctx, audit.Entry{Action: audit.ActionPolicyUpdate, UserID: uid})
	require.NoError(t, err)

	logs, err := l.GetLogs(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Len(t, logs, audit.DefaultLimit)
	assert.Equal(t, "POLICY_UPDATE", logs[0].Action)

	logs, err = l.GetLogs(ctx, audit.Filter{Action: "LOGIN_SUCCESS", Limit: 10_000})
	require.NoError(t, err)
	assert.Len(t, logs, 60)

	logs, err = l.GetLogs(ctx, audit.Filter{UserID: uid, Limit: 5, Offset: 58})
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func TestWithin_RollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := newLedger(t, store)

	err := store.WithTx(ctx, func(tx repository.Repositories) error {
		_, err := l.Within(tx).Log(ctx, audit.Entry{Action: audit.ActionCourseRegister})
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	logs, err := l.GetLogs(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
