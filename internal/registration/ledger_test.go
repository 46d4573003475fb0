package registration_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/email"
	"github.com/dropDatabas3/registrar/internal/registration"
	"github.com/dropDatabas3/registrar/internal/security/cryptocore"
	"github.com/dropDatabas3/registrar/internal/store/adapters/memory"
	"github.com/dropDatabas3/registrar/internal/store/storetest"
)

type confirmations struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (c *confirmations) SendRegistrationConfirmation(_ context.Context, to, _ string, ci email.CourseInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, to+":"+ci.Code)
	return c.err
}

type env struct {
	svc    registration.Service
	store  *memory.Connection
	ledger audit.Ledger
	mail   *confirmations
	core   *cryptocore.Core
}

// rewrittenReads devuelve las filas de registrations alteradas por edit,
// como si alguien hubiera tocado columnas que el repo no permite cambiar.
type rewrittenReads struct {
	*memory.Connection
	edit func(*repository.Registration)
}

func (s rewrittenReads) Registrations() repository.RegistrationRepository {
	return rewrittenRegs{RegistrationRepository: s.Connection.Registrations(), edit: s.edit}
}

type rewrittenRegs struct {
	repository.RegistrationRepository
	edit func(*repository.Registration)
}

func (r rewrittenRegs) GetByID(ctx context.Context, id string) (*repository.Registration, error) {
	reg, err := r.RegistrationRepository.GetByID(ctx, id)
	if err == nil {
		r.edit(reg)
	}
	return reg, err
}

func newEnv(t *testing.T) *env {
	t.Helper()
	core, err := cryptocore.New(cryptocore.Keys{
		EncryptionKey: bytes.Repeat([]byte{9}, 32),
		IntegrityKey:  bytes.Repeat([]byte{10}, 32),
		BcryptCost:    4,
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)

	e := &env{store: memory.New(), mail: &confirmations{}, core: core}
	e.ledger = audit.New(audit.Deps{Repos: e.store, Hasher: core})
	e.svc = registration.NewService(registration.Deps{
		Store:   e.store,
		Ledger:  e.ledger,
		Crypto:  core,
		Confirm: e.mail,
		Now:     func() time.Time { return time.Date(2026, 2, 2, 9, 30, 0, 123456789, time.UTC) },
	})
	return e
}

func (e *env) enrollment(t *testing.T, courseID string) int {
	t.Helper()
	c, err := e.store.Courses().GetByID(context.Background(), courseID)
	require.NoError(t, err)
	return c.CurrentEnrollment
}

func TestRegisterAndDrop(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := storetest.SeedUser(t, e.store, "john_doe", types.RoleStudent)
	cs := storetest.SeedCourse(t, e.store, "CS101", 30, nil)

	reg, err := e.svc.Register(ctx, student, cs, audit.Meta{IP: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, repository.StatusRegistered, reg.Status)
	assert.NotEmpty(t, reg.EncryptedData)
	assert.NotEmpty(t, reg.IntegrityHash)
	assert.Equal(t, 1, e.enrollment(t, cs))
	assert.Equal(t, []string{"john_doe@example.edu:CS101"}, e.mail.sent)

	_, err = e.svc.Register(ctx, student, cs, audit.Meta{})
	assert.ErrorIs(t, err, registration.ErrAlreadyRegistered)
	assert.Equal(t, 1, e.enrollment(t, cs))

	v, err := e.svc.VerifyIntegrity(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, registration.MsgIntegrityVerified, v.Message)

	dropped, err := e.svc.Drop(ctx, student, cs, audit.Meta{})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, dropped.ID)
	assert.Equal(t, repository.StatusDropped, dropped.Status)
	require.NotNil(t, dropped.DroppedAt)
	assert.NotEqual(t, reg.IntegrityHash, dropped.IntegrityHash)
	assert.Equal(t, 0, e.enrollment(t, cs))

	v, err = e.svc.VerifyIntegrity(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, err = e.svc.Drop(ctx, student, cs, audit.Meta{})
	assert.ErrorIs(t, err, registration.ErrRegistrationNotFound)
	assert.Equal(t, 0, e.enrollment(t, cs))

	for _, a := range []audit.Action{audit.ActionCourseRegister, audit.ActionCourseDrop} {
		logs, err := e.ledger.GetLogs(ctx, audit.Filter{Action: string(a)})
		require.NoError(t, err)
		require.Len(t, logs, 1, a)
		assert.Equal(t, "CS101", logs[0].Details["courseCode"])
		assert.Equal(t, reg.ID, logs[0].ResourceID)
	}
}

func TestReRegisterReusesRow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := storetest.SeedUser(t, e.store, "jane_smith", types.RoleStudent)
	cs := storetest.SeedCourse(t, e.store, "MATH201", 5, nil)

	first, err := e.svc.Register(ctx, student, cs, audit.Meta{})
	require.NoError(t, err)
	_, err = e.svc.Drop(ctx, student, cs, audit.Meta{})
	require.NoError(t, err)
	again, err := e.svc.Register(ctx, student, cs, audit.Meta{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Nil(t, again.DroppedAt)
	assert.Equal(t, 1, e.enrollment(t, cs))

	all, err := e.svc.ListForStudent(ctx, student, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, registration.EncodeCourseID(cs), all[0].EncodedCourseID)
	assert.Equal(t, "MATH201", all[0].Course.Code)
}

func TestRegister_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := storetest.SeedUser(t, e.store, "student_a", types.RoleStudent)
	b := storetest.SeedUser(t, e.store, "student_b", types.RoleStudent)
	cs := storetest.SeedCourse(t, e.store, "CS401", 1, nil)

	_, err := e.svc.Register(ctx, a, "not-a-uuid", audit.Meta{})
	assert.ErrorIs(t, err, registration.ErrCourseNotFound)
	_, err = e.svc.Register(ctx, a, "6c1d0c8e-3f7b-4a57-8c55-1f0e9b8d2a11", audit.Meta{})
	assert.ErrorIs(t, err, registration.ErrCourseNotFound)

	_, err = e.svc.Register(ctx, a, cs, audit.Meta{})
	require.NoError(t, err)
	_, err = e.svc.Register(ctx, b, cs, audit.Meta{})
	assert.ErrorIs(t, err, registration.ErrCourseFull)
	assert.Equal(t, 1, e.enrollment(t, cs))

	logs, err := e.ledger.GetLogs(ctx, audit.Filter{Action: string(audit.ActionCourseRegister)})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestRegister_ConfirmationFailureIsIgnored(t *testing.T) {
	e := newEnv(t)
	e.mail.err = fmt.Errorf("smtp down")
	student := storetest.SeedUser(t, e.store, "john_doe", types.RoleStudent)
	cs := storetest.SeedCourse(t, e.store, "CS101", 3, nil)

	_, err := e.svc.Register(context.Background(), student, cs, audit.Meta{})
	assert.NoError(t, err)
	assert.Len(t, e.mail.sent, 1)
}

func TestRegister_ConcurrentSeats(t *testing.T) {
	for _, tc := range []struct{ students, seats int }{{20, 5}, {8, 1}} {
		t.Run(fmt.Sprintf("%d_for_%d", tc.students, tc.seats), func(t *testing.T) {
			ctx := context.Background()
			e := newEnv(t)
			cs := storetest.SeedCourse(t, e.store, "CS500", tc.seats, nil)
			ids := make([]string, tc.students)
			for i := range ids {
				ids[i] = storetest.SeedUser(t, e.store, fmt.Sprintf("student_%02d", i), types.RoleStudent)
			}

			var ok, full atomic.Int32
			var wg sync.WaitGroup
			for _, id := range ids {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					_, err := e.svc.Register(ctx, id, cs, audit.Meta{})
					switch {
					case err == nil:
						ok.Add(1)
					case assert.ErrorIs(t, err, registration.ErrCourseFull):
						full.Add(1)
					}
				}(id)
			}
			wg.Wait()

			assert.Equal(t, int32(tc.seats), ok.Load())
			assert.Equal(t, int32(tc.students-tc.seats), full.Load())
			assert.Equal(t, tc.seats, e.enrollment(t, cs))

			roster, err := e.svc.EnrolledStudents(ctx, cs)
			require.NoError(t, err)
			assert.Len(t, roster, tc.seats)
		})
	}
}

func TestRegister_SameStudentConcurrently(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := storetest.SeedUser(t, e.store, "john_doe", types.RoleStudent)
	cs := storetest.SeedCourse(t, e.store, "CS101", 10, nil)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.svc.Register(ctx, student, cs, audit.Meta{}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 1, e.enrollment(t, cs))
}

func TestVerifyIntegrity_DetectsTampering(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	student := storetest.SeedUser(t, e.store, "john_doe", types.RoleStudent)
	cs := storetest.SeedCourse(t, e.store, "CS101", 10, nil)
	reg, err := e.svc.Register(ctx, student, cs, audit.Meta{})
	require.NoError(t, err)

	tamper := func(t *testing.T, mutate func(r *repository.Registration)) *registration.Verification {
		t.Helper()
		r := *reg
		mutate(&r)
		require.NoError(t, e.store.Registrations().Update(ctx, r))
		t.Cleanup(func() { require.NoError(t, e.store.Registrations().Update(ctx, *reg)) })
		v, err := e.svc.VerifyIntegrity(ctx, reg.ID)
		require.NoError(t, err)
		return v
	}

	t.Run("status", func(t *testing.T) {
		v := tamper(t, func(r *repository.Registration) { r.Status = repository.StatusDropped })
		assert.False(t, v.Valid)
		assert.Equal(t, registration.MsgIntegrityFailed, v.Message)
	})
	t.Run("hash", func(t *testing.T) {
		v := tamper(t, func(r *repository.Registration) {
			flip := byte('0')
			if r.IntegrityHash[0] == '0' {
				flip = '1'
			}
			r.IntegrityHash = string(flip) + r.IntegrityHash[1:]
		})
		assert.False(t, v.Valid)
		assert.Equal(t, registration.MsgIntegrityFailed, v.Message)
	})
	t.Run("backdated", func(t *testing.T) {
		v := tamper(t, func(r *repository.Registration) { r.RegisteredAt = r.RegisteredAt.Add(-48 * time.Hour) })
		assert.False(t, v.Valid)
		assert.Equal(t, registration.MsgIntegrityFailed, v.Message)
	})

	other := storetest.SeedCourse(t, e.store, "CS102", 10, nil)
	rewritten := func(t *testing.T, edit func(r *repository.Registration)) *registration.Verification {
		t.Helper()
		svc := registration.NewService(registration.Deps{
			Store:  rewrittenReads{Connection: e.store, edit: edit},
			Ledger: e.ledger,
			Crypto: e.core,
		})
		v, err := svc.VerifyIntegrity(ctx, reg.ID)
		require.NoError(t, err)
		return v
	}
	t.Run("course moved", func(t *testing.T) {
		v := rewritten(t, func(r *repository.Registration) { r.CourseID = other })
		assert.False(t, v.Valid)
		assert.Equal(t, registration.MsgIntegrityFailed, v.Message)
	})
	t.Run("student swapped", func(t *testing.T) {
		jane := storetest.SeedUser(t, e.store, "jane_smith", types.RoleStudent)
		v := rewritten(t, func(r *repository.Registration) { r.StudentID = jane })
		assert.False(t, v.Valid)
	})
	t.Run("course moved and backdated", func(t *testing.T) {
		v := rewritten(t, func(r *repository.Registration) {
			r.CourseID = other
			r.RegisteredAt = r.RegisteredAt.Add(-48 * time.Hour)
		})
		assert.False(t, v.Valid)
		assert.Equal(t, registration.MsgIntegrityFailed, v.Message)
	})
	t.Run("untouched through wrapper", func(t *testing.T) {
		v := rewritten(t, func(*repository.Registration) {})
		assert.True(t, v.Valid)
	})
	t.Run("ciphertext", func(t *testing.T) {
		v := tamper(t, func(r *repository.Registration) { r.EncryptedData = "not-a-ciphertext" })
		assert.False(t, v.Valid)
		assert.Equal(t, registration.MsgIntegrityError, v.Message)
	})

	v, err := e.svc.VerifyIntegrity(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, err = e.svc.VerifyIntegrity(ctx, "6c1d0c8e-3f7b-4a57-8c55-1f0e9b8d2a11")
	assert.ErrorIs(t, err, registration.ErrRegistrationNotFound)
}

func TestOwnershipAndStats(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := storetest.SeedUser(t, e.store, "student_a", types.RoleStudent)
	b := storetest.SeedUser(t, e.store, "student_b", types.RoleStudent)
	cs1 := storetest.SeedCourse(t, e.store, "CS101", 10, nil)
	cs2 := storetest.SeedCourse(t, e.store, "CS102", 10, nil)

	reg, err := e.svc.Register(ctx, a, cs1, audit.Meta{})
	require.NoError(t, err)
	_, err = e.svc.Register(ctx, b, cs1, audit.Meta{})
	require.NoError(t, err)
	_, err = e.svc.Register(ctx, b, cs2, audit.Meta{})
	require.NoError(t, err)
	_, err = e.svc.Drop(ctx, b, cs2, audit.Meta{})
	require.NoError(t, err)

	own, err := e.svc.IsOwner(ctx, reg.ID, a)
	require.NoError(t, err)
	assert.True(t, own)
	own, err = e.svc.IsOwner(ctx, reg.ID, b)
	require.NoError(t, err)
	assert.False(t, own)

	st, err := e.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Active)
	assert.Equal(t, 1, st.Dropped)
	require.NotEmpty(t, st.TopCourses)
	assert.Equal(t, "CS101", st.TopCourses[0].Code)
	assert.Equal(t, 2, st.TopCourses[0].Count)

	active, err := e.svc.ListForStudent(ctx, b, repository.StatusRegistered)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}
