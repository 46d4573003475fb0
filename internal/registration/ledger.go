// Package registration lleva el ledger de inscripciones: cupo, payload
// cifrado y hash de integridad por cada alta o baja.
package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/email"
	"github.com/dropDatabas3/registrar/internal/metrics"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/security/integrity"
	"github.com/dropDatabas3/registrar/internal/validation"
)

const (
	MsgIntegrityVerified = "Integrity verified"
	MsgIntegrityFailed   = "Integrity check failed - possible tampering"
	MsgIntegrityError    = "Failed to verify integrity"

	// TopCourses es el tamaño del ranking de Stats.
	TopCourses = 5
)

var (
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseFull           = errors.New("course is full")
	ErrAlreadyRegistered    = errors.New("already registered for this course")
	ErrRegistrationNotFound = errors.New("registration not found")
)

// Payload es lo que se cifra en cada inscripción.
type Payload struct {
	StudentID string `json:"studentId"`
	CourseID  string `json:"courseId"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

const (
	payloadRegister = "REGISTER"
	payloadDrop     = "DROP"
)

// Verification es el resultado de VerifyIntegrity.
type Verification struct {
	RegistrationID string `json:"registrationId"`
	Valid          bool   `json:"valid"`
	Message        string `json:"message"`
}

// Crypto es la parte de cryptocore que usa el ledger.
type Crypto interface {
	Encrypt(v any) (string, error)
	Decrypt(cipherText string, v any) error
	ActionHash(a integrity.Action) (string, error)
	VerifyActionHash(a integrity.Action, hash string) (bool, error)
}

// Confirmer envía la confirmación de inscripción.
type Confirmer interface {
	SendRegistrationConfirmation(ctx context.Context, to, username string, c email.CourseInfo) error
}

type Service interface {
	Register(ctx context.Context, studentID, courseID string, meta audit.Meta) (*repository.Registration, error)
	Drop(ctx context.Context, studentID, courseID string, meta audit.Meta) (*repository.Registration, error)
	VerifyIntegrity(ctx context.Context, regID string) (*Verification, error)

	ListForStudent(ctx context.Context, studentID string, status repository.RegistrationStatus) ([]StudentRegistration, error)
	EnrolledStudents(ctx context.Context, courseID string) ([]Enrolled, error)
	IsOwner(ctx context.Context, regID, studentID string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}

type Deps struct {
	Store   repository.DataAccess
	Ledger  audit.Ledger
	Crypto  Crypto
	Confirm Confirmer // opcional
	Now     func() time.Time
}

type service struct {
	deps Deps
}

func NewService(d Deps) Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &service{deps: d}
}

// actionFor mapea el estado guardado a la acción que se firmó.
func actionFor(st repository.RegistrationStatus) (audit.Action, string) {
	if st == repository.StatusDropped {
		return audit.ActionCourseDrop, payloadDrop
	}
	return audit.ActionCourseRegister, payloadRegister
}

func snapshot(r repository.Registration, p Payload, ts time.Time) integrity.Action {
	name, _ := actionFor(r.Status)
	return integrity.Action{
		Name:         string(name),
		ActorID:      r.StudentID,
		ResourceType: audit.ResourceRegistration,
		ResourceID:   r.ID,
		Details:      p,
		Timestamp:    ts,
	}
}

// seal cifra el payload del estado actual de r y calcula su hash.
func (s *service) seal(r *repository.Registration, ts time.Time) error {
	_, act := actionFor(r.Status)
	p := Payload{
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		Timestamp: ts.Format(time.RFC3339Nano),
		Action:    act,
	}
	ct, err := s.deps.Crypto.Encrypt(p)
	if err != nil {
		return fmt.Errorf("registration: encrypt: %w", err)
	}
	hash, err := s.deps.Crypto.ActionHash(snapshot(*r, p, ts))
	if err != nil {
		return fmt.Errorf("registration: hash: %w", err)
	}
	r.EncryptedData = ct
	r.IntegrityHash = hash
	return nil
}

func (s *service) Register(ctx context.Context, studentID, courseID string, meta audit.Meta) (*repository.Registration, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("registration"),
		logger.Op("Register"),
		logger.UserID(studentID),
		logger.CourseID(courseID),
	)
	if !validation.ID(courseID) {
		return nil, ErrCourseNotFound
	}

	var (
		reg    repository.Registration
		course *repository.Course
	)
	err := s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		var err error
		course, err = tx.Courses().GetByID(ctx, courseID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("registration: get course: %w", err)
		}

		existing, err := tx.Registrations().GetForUpdate(ctx, studentID, courseID)
		if err != nil && !repository.IsNotFound(err) {
			return fmt.Errorf("registration: lock pair: %w", err)
		}
		if existing != nil && existing.Status == repository.StatusRegistered {
			return ErrAlreadyRegistered
		}

		if _, err := tx.Courses().IncrementEnrollment(ctx, courseID); err != nil {
			switch {
			case repository.IsPreconditionFailed(err):
				return ErrCourseFull
			case repository.IsNotFound(err):
				return ErrCourseNotFound
			}
			return fmt.Errorf("registration: reserve seat: %w", err)
		}

		ts := integrity.Timestamp(s.deps.Now())
		if existing != nil {
			reg = *existing
		} else {
			reg = repository.Registration{ID: uuid.NewString(), StudentID: studentID, CourseID: courseID}
		}
		reg.Status = repository.StatusRegistered
		reg.RegisteredAt = ts
		reg.DroppedAt = nil
		reg.UpdatedAt = ts
		if err := s.seal(&reg, ts); err != nil {
			return err
		}

		if existing != nil {
			err = tx.Registrations().Update(ctx, reg)
		} else {
			err = tx.Registrations().Create(ctx, reg)
		}
		if err != nil {
			if repository.IsConflict(err) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("registration: save: %w", err)
		}

		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionCourseRegister,
			UserID:       studentID,
			ResourceType: audit.ResourceRegistration,
			ResourceID:   reg.ID,
			Details:      map[string]any{"courseId": courseID, "courseCode": course.Code},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		metrics.RecordRegistration("register", result(err))
		log.Debug("register rejected", logger.Err(err))
		return nil, err
	}
	metrics.RecordRegistration("register", "ok")
	log.Info("registered", logger.RegistrationID(reg.ID))

	s.confirm(ctx, studentID, course)
	return &reg, nil
}

// confirm manda el correo después del commit; un fallo sólo se loguea.
func (s *service) confirm(ctx context.Context, studentID string, c *repository.Course) {
	if s.deps.Confirm == nil {
		return
	}
	u, err := s.deps.Store.Users().GetByID(ctx, studentID)
	if err == nil {
		err = s.deps.Confirm.SendRegistrationConfirmation(ctx, u.Email, u.Username,
			email.CourseInfo{Name: c.Name, Code: c.Code})
		metrics.RecordEmail("confirmation", err)
	}
	if err != nil {
		logger.From(ctx).Warn("registration confirmation not sent",
			logger.Component("registration"), logger.UserID(studentID), logger.Err(err))
	}
}

func (s *service) Drop(ctx context.Context, studentID, courseID string, meta audit.Meta) (*repository.Registration, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("registration"),
		logger.Op("Drop"),
		logger.UserID(studentID),
		logger.CourseID(courseID),
	)
	if !validation.ID(courseID) {
		return nil, ErrRegistrationNotFound
	}

	var reg repository.Registration
	err := s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		existing, err := tx.Registrations().GetForUpdate(ctx, studentID, courseID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrRegistrationNotFound
			}
			return fmt.Errorf("registration: lock pair: %w", err)
		}
		if existing.Status != repository.StatusRegistered {
			return ErrRegistrationNotFound
		}
		course, err := tx.Courses().GetByID(ctx, courseID)
		if err != nil {
			return fmt.Errorf("registration: get course: %w", err)
		}
		if _, err := tx.Courses().DecrementEnrollment(ctx, courseID); err != nil {
			return fmt.Errorf("registration: release seat: %w", err)
		}

		ts := integrity.Timestamp(s.deps.Now())
		reg = *existing
		reg.Status = repository.StatusDropped
		reg.DroppedAt = &ts
		reg.UpdatedAt = ts
		if err := s.seal(&reg, ts); err != nil {
			return err
		}
		if err := tx.Registrations().Update(ctx, reg); err != nil {
			return fmt.Errorf("registration: save: %w", err)
		}

		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionCourseDrop,
			UserID:       studentID,
			ResourceType: audit.ResourceRegistration,
			ResourceID:   reg.ID,
			Details:      map[string]any{"courseId": courseID, "courseCode": course.Code},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		metrics.RecordRegistration("drop", result(err))
		log.Debug("drop rejected", logger.Err(err))
		return nil, err
	}
	metrics.RecordRegistration("drop", "ok")
	log.Info("dropped", logger.RegistrationID(reg.ID))
	return &reg, nil
}

func result(err error) string {
	switch {
	case errors.Is(err, ErrCourseFull):
		return "course_full"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrRegistrationNotFound):
		return "not_found"
	}
	return "error"
}

func (s *service) VerifyIntegrity(ctx context.Context, regID string) (*Verification, error) {
	if !validation.ID(regID) {
		return nil, ErrRegistrationNotFound
	}
	r, err := s.deps.Store.Registrations().GetByID(ctx, regID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("registration: get: %w", err)
	}

	out := &Verification{RegistrationID: regID}
	valid, err := s.check(*r)
	switch {
	case err != nil:
		out.Message = MsgIntegrityError
		logger.From(ctx).Warn("integrity check error",
			logger.Component("registration"), logger.RegistrationID(regID), logger.Err(err))
	case valid:
		out.Valid = true
		out.Message = MsgIntegrityVerified
	default:
		out.Message = MsgIntegrityFailed
	}
	metrics.RecordIntegrityCheck("registration", out.Valid)
	return out, nil
}

func (s *service) check(r repository.Registration) (bool, error) {
	var p Payload
	if err := s.deps.Crypto.Decrypt(r.EncryptedData, &p); err != nil {
		return false, err
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return false, fmt.Errorf("registration: payload timestamp: %w", err)
	}
	if !boundTo(r, p, ts) {
		return false, nil
	}
	return s.deps.Crypto.VerifyActionHash(snapshot(r, p, ts), r.IntegrityHash)
}

// boundTo compara las columnas en claro con el payload cifrado: una fila
// movida de curso, de alumno o con fechas corridas no verifica.
func boundTo(r repository.Registration, p Payload, ts time.Time) bool {
	if p.StudentID != r.StudentID || p.CourseID != r.CourseID {
		return false
	}
	if _, act := actionFor(r.Status); p.Action != act {
		return false
	}
	if r.Status == repository.StatusDropped {
		return r.DroppedAt != nil && r.DroppedAt.Equal(ts)
	}
	return r.RegisteredAt.Equal(ts)
}
