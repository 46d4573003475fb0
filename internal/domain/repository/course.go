package repository

import (
	"context"
	"time"
)

// Course representa un curso con su contabilidad de cupos.
// Invariante: 0 <= CurrentEnrollment <= MaxSeats.
type Course struct {
	ID                string
	Name              string
	Code              string // siempre en mayúsculas
	Description       string
	FacultyID         *string
	MaxSeats          int
	CurrentEnrollment int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AvailableSeats retorna los cupos libres.
func (c Course) AvailableSeats() int {
	if n := c.MaxSeats - c.CurrentEnrollment; n > 0 {
		return n
	}
	return 0
}

// IsAvailable reporta si queda al menos un cupo.
func (c Course) IsAvailable() bool { return c.AvailableSeats() > 0 }

// OwnedBy reporta si el curso pertenece al docente dado.
func (c Course) OwnedBy(facultyID string) bool {
	return c.FacultyID != nil && *c.FacultyID == facultyID
}

// CourseFilter filtra listados de cursos.
type CourseFilter struct {
	FacultyID     string
	OnlyAvailable bool
}

// CourseRepository define operaciones sobre cursos.
type CourseRepository interface {
	// Create inserta un curso. ErrConflict si el código existe.
	Create(ctx context.Context, c Course) error

	GetByID(ctx context.Context, id string) (*Course, error)
	GetByCode(ctx context.Context, code string) (*Course, error)

	// List retorna cursos ordenados por código.
	List(ctx context.Context, filter CourseFilter) ([]Course, error)

	// Update persiste nombre, descripción, docente y cupo máximo.
	// ErrPreconditionFailed si MaxSeats < CurrentEnrollment almacenado.
	Update(ctx context.Context, c Course) error

	// Delete elimina el curso. ErrPreconditionFailed si tiene inscriptos.
	Delete(ctx context.Context, id string) error

	// IncrementEnrollment suma un inscripto sólo si queda cupo.
	// ErrPreconditionFailed si está lleno, ErrNotFound si no existe.
	IncrementEnrollment(ctx context.Context, id string) (int, error)

	// DecrementEnrollment resta un inscripto sin bajar de cero.
	// ErrPreconditionFailed si ya está en cero.
	DecrementEnrollment(ctx context.Context, id string) (int, error)
}
