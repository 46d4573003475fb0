package repository

import (
	"context"
	"time"
)

// RegistrationStatus es el estado de una inscripción.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusDropped    RegistrationStatus = "dropped"
)

// Registration es el único registro por par (alumno, curso).
type Registration struct {
	ID            string
	StudentID     string
	CourseID      string
	Status        RegistrationStatus
	EncryptedData string
	IntegrityHash string
	RegisteredAt  time.Time
	DroppedAt     *time.Time
	UpdatedAt     time.Time
}

// RegistrationWithCourse junta la inscripción con los datos del curso.
type RegistrationWithCourse struct {
	Registration
	Course Course
}

// EnrolledStudent es una fila del roster de un curso.
type EnrolledStudent struct {
	RegistrationID string
	StudentID      string
	Username       string
	Email          string
	RegisteredAt   time.Time
}

// CourseCount cuenta inscripciones activas por curso.
type CourseCount struct {
	CourseID string
	Code     string
	Name     string
	Count    int
}

// RegistrationStats resume el estado global de inscripciones.
type RegistrationStats struct {
	Active     int
	Dropped    int
	TopCourses []CourseCount
}

// RegistrationRepository define operaciones sobre inscripciones.
type RegistrationRepository interface {
	// Create inserta una inscripción. ErrConflict si el par ya existe.
	Create(ctx context.Context, r Registration) error

	// Update persiste estado, payload, hash y fechas.
	Update(ctx context.Context, r Registration) error

	GetByID(ctx context.Context, id string) (*Registration, error)

	// GetForUpdate obtiene el registro del par bloqueándolo hasta el fin
	// de la transacción (si el adapter lo soporta).
	GetForUpdate(ctx context.Context, studentID, courseID string) (*Registration, error)

	// ListByStudent lista inscripciones del alumno. Status vacío = todas.
	ListByStudent(ctx context.Context, studentID string, status RegistrationStatus) ([]RegistrationWithCourse, error)

	// ListEnrolled lista los alumnos inscriptos (status registered) del curso.
	ListEnrolled(ctx context.Context, courseID string) ([]EnrolledStudent, error)

	// Stats calcula totales y los top cursos por inscriptos activos.
	Stats(ctx context.Context, top int) (*RegistrationStats, error)
}
