// Package storetest contiene la batería de contrato que todo adapter del
// store debe pasar. Cada adapter la invoca desde su propio _test.go.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
)

// Factory retorna un DataAccess vacío (schema aplicado, sin datos).
type Factory func(t *testing.T) repository.DataAccess

// Run ejecuta todos los casos de contrato.
func Run(t *testing.T, newDA Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newDA(t)) })
	t.Run("OTP", func(t *testing.T) { testOTP(t, newDA(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newDA(t)) })
	t.Run("Courses", func(t *testing.T) { testCourses(t, newDA(t)) })
	t.Run("SeatGuard", func(t *testing.T) { testSeatGuard(t, newDA(t)) })
	t.Run("Registrations", func(t *testing.T) { testRegistrations(t, newDA(t)) })
	t.Run("Policies", func(t *testing.T) { testPolicies(t, newDA(t)) })
	t.Run("Audit", func(t *testing.T) { testAudit(t, newDA(t)) })
	t.Run("TxRollback", func(t *testing.T) { testTxRollback(t, newDA(t)) })
}

var epoch = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

// SeedUser crea un usuario con el rol dado y retorna su ID.
func SeedUser(t *testing.T, da repository.DataAccess, username string, role types.Role) string {
	t.Helper()
	u, err := da.Users().Create(context.Background(), repository.CreateUserInput{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.edu",
		PasswordHash: "$2a$04$hash",
		Role:         role,
		CreatedAt:    epoch,
	})
	require.NoError(t, err)
	return u.ID
}

// SeedCourse crea un curso y retorna su ID.
func SeedCourse(t *testing.T, da repository.DataAccess, code string, seats int, faculty *string) string {
	t.Helper()
	c := repository.Course{
		ID:        uuid.NewString(),
		Name:      "Course " + code,
		Code:      code,
		FacultyID: faculty,
		MaxSeats:  seats,
		CreatedAt: epoch,
		UpdatedAt: epoch,
	}
	require.NoError(t, da.Courses().Create(context.Background(), c))
	return c.ID
}

func testUsers(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	id := SeedUser(t, da, "john_doe", types.RoleStudent)

	u, err := da.Users().GetByEmail(ctx, "JOHN_DOE@example.edu")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "john_doe@example.edu", u.Email)
	assert.True(t, u.IsActive)
	assert.Nil(t, u.OTP)

	_, err = da.Users().Create(ctx, repository.CreateUserInput{
		ID: uuid.NewString(), Username: "john_doe", Email: "other@example.edu",
		PasswordHash: "x", Role: types.RoleStudent, CreatedAt: epoch,
	})
	assert.True(t, repository.IsConflict(err), "duplicate username: %v", err)

	_, err = da.Users().Create(ctx, repository.CreateUserInput{
		ID: uuid.NewString(), Username: "someone", Email: "John_Doe@Example.edu",
		PasswordHash: "x", Role: types.RoleStudent, CreatedAt: epoch,
	})
	assert.True(t, repository.IsConflict(err), "duplicate email: %v", err)

	ok, err := da.Users().ExistsByUsernameOrEmail(ctx, "nobody", "JOHN_doe@example.edu")
	require.NoError(t, err)
	assert.True(t, ok)

	SeedUser(t, da, "dr_smith", types.RoleFaculty)
	all, err := da.Users().List(ctx, repository.ListUsersFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	fac, err := da.Users().List(ctx, repository.ListUsersFilter{Role: types.RoleFaculty})
	require.NoError(t, err)
	require.Len(t, fac, 1)
	assert.Equal(t, "dr_smith", fac[0].Username)

	require.NoError(t, da.Users().SetActive(ctx, id, false))
	u, err = da.Users().GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = da.Users().GetByID(ctx, uuid.NewString())
	assert.True(t, repository.IsNotFound(err))
	assert.True(t, repository.IsNotFound(da.Users().SetActive(ctx, uuid.NewString(), true)))
}

func testOTP(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	id := SeedUser(t, da, "jane_smith", types.RoleStudent)
	hash := "a3f1c2d4e5b6a7980123456789abcdef0123456789abcdef0123456789abcdef"

	require.NoError(t, da.Users().SetOTPChallenge(ctx, id, repository.OTPChallenge{
		Hash: hash, ExpiresAt: epoch.Add(5 * time.Minute),
	}))
	u, err := da.Users().GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u.OTP)
	assert.Equal(t, hash, u.OTP.Hash)
	assert.False(t, u.OTP.Used)
	assert.True(t, u.OTP.ExpiresAt.Equal(epoch.Add(5*time.Minute)))

	err = da.Users().ConsumeOTPChallenge(ctx, id, "ffff"+hash[4:])
	assert.True(t, repository.IsPreconditionFailed(err))

	require.NoError(t, da.Users().ConsumeOTPChallenge(ctx, id, hash))
	err = da.Users().ConsumeOTPChallenge(ctx, id, hash)
	assert.True(t, repository.IsPreconditionFailed(err), "second consume must fail: %v", err)

	u, err = da.Users().GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.OTP.Used)
}

func testSessions(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	uid := SeedUser(t, da, "dr_johnson", types.RoleFaculty)

	mk := func(ttl time.Duration, temp bool) repository.Session {
		s := repository.Session{
			ID: uuid.NewString(), UserID: uid, TokenHash: "h", IsTemp: temp, IsValid: true,
			ExpiresAt: epoch.Add(ttl), CreatedAt: epoch,
		}
		require.NoError(t, da.Sessions().Create(ctx, s))
		return s
	}
	a := mk(time.Hour, true)
	b := mk(24*time.Hour, false)
	c := mk(-time.Minute, false)

	got, err := da.Sessions().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsTemp)
	assert.True(t, got.IsValid)

	require.NoError(t, da.Sessions().Invalidate(ctx, a.ID))
	require.NoError(t, da.Sessions().Invalidate(ctx, a.ID))
	require.NoError(t, da.Sessions().Invalidate(ctx, uuid.NewString()))
	got, err = da.Sessions().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsValid)

	n, err := da.Sessions().InvalidateAllForUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, n) // b y c

	n, err = da.Sessions().DeleteExpired(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = da.Sessions().GetByID(ctx, c.ID)
	assert.True(t, repository.IsNotFound(err))
	_, err = da.Sessions().GetByID(ctx, b.ID)
	assert.NoError(t, err)
}

func testCourses(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	fac := SeedUser(t, da, "dr_smith", types.RoleFaculty)
	cs := SeedCourse(t, da, "CS-101", 2, &fac)
	SeedCourse(t, da, "MATH-201", 1, nil)

	err := da.Courses().Create(ctx, repository.Course{
		ID: uuid.NewString(), Name: "Dup", Code: "CS-101", MaxSeats: 10, CreatedAt: epoch, UpdatedAt: epoch,
	})
	assert.True(t, repository.IsConflict(err))

	got, err := da.Courses().GetByCode(ctx, "CS-101")
	require.NoError(t, err)
	assert.Equal(t, cs, got.ID)
	assert.True(t, got.OwnedBy(fac))

	list, err := da.Courses().List(ctx, repository.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CS-101", list[0].Code)
	assert.Equal(t, "MATH-201", list[1].Code)

	own, err := da.Courses().List(ctx, repository.CourseFilter{FacultyID: fac})
	require.NoError(t, err)
	require.Len(t, own, 1)

	_, err = da.Courses().IncrementEnrollment(ctx, cs)
	require.NoError(t, err)

	got.MaxSeats = 0
	got.Name = "Intro"
	err = da.Courses().Update(ctx, *got)
	assert.True(t, repository.IsPreconditionFailed(err), "max below enrollment: %v", err)
	got.MaxSeats = 1
	require.NoError(t, da.Courses().Update(ctx, *got))

	assert.True(t, repository.IsPreconditionFailed(da.Courses().Delete(ctx, cs)))

	avail, err := da.Courses().List(ctx, repository.CourseFilter{OnlyAvailable: true})
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "MATH-201", avail[0].Code)

	n, err := da.Courses().DecrementEnrollment(ctx, cs)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = da.Courses().DecrementEnrollment(ctx, cs)
	assert.True(t, repository.IsPreconditionFailed(err))

	require.NoError(t, da.Courses().Delete(ctx, cs))
	assert.True(t, repository.IsNotFound(da.Courses().Delete(ctx, cs)))
	_, err = da.Courses().IncrementEnrollment(ctx, cs)
	assert.True(t, repository.IsNotFound(err))
}

func testSeatGuard(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	const seats, workers = 3, 12
	id := SeedCourse(t, da, "PHYS-100", seats, nil)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		ok     int
		denied int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := da.WithTx(ctx, func(tx repository.Repositories) error {
				_, err := tx.Courses().IncrementEnrollment(ctx, id)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrPreconditionFailed):
				denied++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, seats, ok)
	assert.Equal(t, workers-seats, denied)
	c, err := da.Courses().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, seats, c.CurrentEnrollment)
}

func testRegistrations(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	stu := SeedUser(t, da, "john_doe", types.RoleStudent)
	other := SeedUser(t, da, "jane_smith", types.RoleStudent)
	cs := SeedCourse(t, da, "CS-101", 10, nil)
	math := SeedCourse(t, da, "MATH-201", 10, nil)

	reg := repository.Registration{
		ID: uuid.NewString(), StudentID: stu, CourseID: cs, Status: repository.StatusRegistered,
		EncryptedData: "n|c", IntegrityHash: "h1", RegisteredAt: epoch, UpdatedAt: epoch,
	}
	require.NoError(t, da.Registrations().Create(ctx, reg))

	dup := reg
	dup.ID = uuid.NewString()
	assert.True(t, repository.IsConflict(da.Registrations().Create(ctx, dup)))

	require.NoError(t, da.Registrations().Create(ctx, repository.Registration{
		ID: uuid.NewString(), StudentID: other, CourseID: cs, Status: repository.StatusRegistered,
		EncryptedData: "n|c", IntegrityHash: "h2", RegisteredAt: epoch.Add(time.Minute), UpdatedAt: epoch,
	}))
	require.NoError(t, da.Registrations().Create(ctx, repository.Registration{
		ID: uuid.NewString(), StudentID: stu, CourseID: math, Status: repository.StatusDropped,
		EncryptedData: "n|c", IntegrityHash: "h3", RegisteredAt: epoch.Add(-time.Hour), UpdatedAt: epoch,
	}))

	err := da.WithTx(ctx, func(tx repository.Repositories) error {
		locked, err := tx.Registrations().GetForUpdate(ctx, stu, cs)
		if err != nil {
			return err
		}
		dropped := epoch.Add(2 * time.Hour)
		locked.Status = repository.StatusDropped
		locked.DroppedAt = &dropped
		locked.IntegrityHash = "h1b"
		return tx.Registrations().Update(ctx, *locked)
	})
	require.NoError(t, err)

	got, err := da.Registrations().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDropped, got.Status)
	require.NotNil(t, got.DroppedAt)
	assert.Equal(t, "h1b", got.IntegrityHash)

	_, err = da.Registrations().GetForUpdate(ctx, other, math)
	assert.True(t, repository.IsNotFound(err))

	mine, err := da.Registrations().ListByStudent(ctx, stu, "")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "CS-101", mine[0].Course.Code)

	active, err := da.Registrations().ListByStudent(ctx, other, repository.StatusRegistered)
	require.NoError(t, err)
	require.Len(t, active, 1)

	roster, err := da.Registrations().ListEnrolled(ctx, cs)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "jane_smith", roster[0].Username)

	st, err := da.Registrations().Stats(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 2, st.Dropped)
	require.Len(t, st.TopCourses, 1)
	assert.Equal(t, "CS-101", st.TopCourses[0].Code)
	assert.Equal(t, 1, st.TopCourses[0].Count)
}

func testPolicies(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	v1 := epoch.Format(time.RFC3339)
	v2 := epoch.Add(time.Hour).Format(time.RFC3339)

	wrote, err := da.Policies().InsertIfAbsent(ctx, types.PolicyRegistrationStart, v1, epoch)
	require.NoError(t, err)
	assert.True(t, wrote)
	wrote, err = da.Policies().InsertIfAbsent(ctx, types.PolicyRegistrationStart, v2, epoch)
	require.NoError(t, err)
	assert.False(t, wrote)

	require.NoError(t, da.Policies().Upsert(ctx, types.PolicyDropDeadline, v2, epoch))
	require.NoError(t, da.Policies().Upsert(ctx, types.PolicyRegistrationStart, v2, epoch))

	p, err := da.Policies().Get(ctx, types.PolicyRegistrationStart)
	require.NoError(t, err)
	assert.Equal(t, v2, p.Value)

	_, err = da.Policies().Get(ctx, types.PolicyRegistrationEnd)
	assert.True(t, repository.IsNotFound(err))

	all, err := da.Policies().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testAudit(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	uid := uuid.NewString()
	for i := 0; i < 3; i++ {
		require.NoError(t, da.AuditLogs().Append(ctx, repository.AuditLog{
			ID: uuid.NewString(), Action: "LOGIN_SUCCESS", UserID: &uid,
			Details:       map[string]any{"attempt": i, "ok": true},
			IntegrityHash: "h", Timestamp: epoch.Add(time.Duration(i) * time.Second),
		}))
	}
	sysID := uuid.NewString()
	require.NoError(t, da.AuditLogs().Append(ctx, repository.AuditLog{
		ID: sysID, Action: "POLICY_UPDATE", IntegrityHash: "h", Timestamp: epoch.Add(time.Minute),
	}))

	all, err := da.AuditLogs().List(ctx, repository.AuditFilter{Limit: 50})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, sysID, all[0].ID)
	assert.Nil(t, all[0].UserID)
	assert.NotNil(t, all[0].Details)

	mine, err := da.AuditLogs().List(ctx, repository.AuditFilter{UserID: uid, Limit: 2})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, json.Number("2"), mine[0].Details["attempt"])

	page, err := da.AuditLogs().List(ctx, repository.AuditFilter{Action: "LOGIN_SUCCESS", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	got, err := da.AuditLogs().GetByID(ctx, sysID)
	require.NoError(t, err)
	assert.Equal(t, "POLICY_UPDATE", got.Action)
}

func testTxRollback(t *testing.T, da repository.DataAccess) {
	ctx := context.Background()
	id := SeedCourse(t, da, "ROLL-1", 5, nil)
	boom := errors.New("boom")

	err := da.WithTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Courses().IncrementEnrollment(ctx, id); err != nil {
			return err
		}
		if err := tx.AuditLogs().Append(ctx, repository.AuditLog{
			ID: uuid.NewString(), Action: "COURSE_REGISTER", IntegrityHash: "h", Timestamp: epoch,
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := da.Courses().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, c.CurrentEnrollment)
	logs, err := da.AuditLogs().List(ctx, repository.AuditFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
