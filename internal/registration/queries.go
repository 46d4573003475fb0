package registration

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/validation"
)

// StudentRegistration es una inscripción del alumno con su curso.
type StudentRegistration struct {
	ID              string                        `json:"id"`
	CourseID        string                        `json:"courseId"`
	EncodedCourseID string                        `json:"encodedCourseId"`
	Status          repository.RegistrationStatus `json:"status"`
	RegisteredAt    time.Time                     `json:"registeredAt"`
	DroppedAt       *time.Time                    `json:"droppedAt,omitempty"`
	Course          course.View                   `json:"course"`
}

// Enrolled es una fila del roster.
type Enrolled struct {
	RegistrationID string    `json:"registrationId"`
	StudentID      string    `json:"studentId"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	RegisteredAt   time.Time `json:"registeredAt"`
}

type CourseCount struct {
	CourseID string `json:"courseId"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

type Stats struct {
	Active     int           `json:"activeRegistrations"`
	Dropped    int           `json:"droppedRegistrations"`
	TopCourses []CourseCount `json:"topCourses"`
}

// EncodeCourseID es el identificador opaco que ve el cliente.
func EncodeCourseID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func (s *service) ListForStudent(ctx context.Context, studentID string, status repository.RegistrationStatus) ([]StudentRegistration, error) {
	rows, err := s.deps.Store.Registrations().ListByStudent(ctx, studentID, status)
	if err != nil {
		return nil, fmt.Errorf("registration: list: %w", err)
	}
	out := make([]StudentRegistration, 0, len(rows))
	for _, r := range rows {
		out = append(out, StudentRegistration{
			ID:              r.ID,
			CourseID:        r.CourseID,
			EncodedCourseID: EncodeCourseID(r.CourseID),
			Status:          r.Status,
			RegisteredAt:    r.RegisteredAt,
			DroppedAt:       r.DroppedAt,
			Course:          course.ToView(r.Course),
		})
	}
	return out, nil
}

func (s *service) EnrolledStudents(ctx context.Context, courseID string) ([]Enrolled, error) {
	if !validation.ID(courseID) {
		return nil, ErrCourseNotFound
	}
	if _, err := s.deps.Store.Courses().GetByID(ctx, courseID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("registration: get course: %w", err)
	}
	rows, err := s.deps.Store.Registrations().ListEnrolled(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("registration: roster: %w", err)
	}
	out := make([]Enrolled, 0, len(rows))
	for _, r := range rows {
		out = append(out, Enrolled(r))
	}
	return out, nil
}

func (s *service) IsOwner(ctx context.Context, regID, studentID string) (bool, error) {
	if !validation.ID(regID) {
		return false, ErrRegistrationNotFound
	}
	r, err := s.deps.Store.Registrations().GetByID(ctx, regID)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, ErrRegistrationNotFound
		}
		return false, fmt.Errorf("registration: get: %w", err)
	}
	return r.StudentID == studentID, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.deps.Store.Registrations().Stats(ctx, TopCourses)
	if err != nil {
		return nil, fmt.Errorf("registration: stats: %w", err)
	}
	out := &Stats{Active: st.Active, Dropped: st.Dropped, TopCourses: make([]CourseCount, 0, len(st.TopCourses))}
	for _, c := range st.TopCourses {
		out.TopCourses = append(out.TopCourses, CourseCount(c))
	}
	return out, nil
}
