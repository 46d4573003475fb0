// Package course administra el catálogo de cursos y su cupo.
package course

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	"github.com/dropDatabas3/registrar/internal/observability/logger"
	"github.com/dropDatabas3/registrar/internal/validation"
)

var (
	ErrNotFound       = errors.New("course not found")
	ErrDuplicateCode  = errors.New("course code already exists")
	ErrInvalidInput   = errors.New("invalid course data")
	ErrInvalidFaculty = errors.New("faculty not found")
	ErrSeatsBelow     = errors.New("max seats cannot be below current enrollment")
	ErrHasEnrollments = errors.New("cannot delete course with enrolled students")
)

// Input son los campos editables de un curso. En Update los nil no se tocan.
type Input struct {
	Name        *string
	Code        *string
	Description *string
	FacultyID   *string // "" = sin docente
	MaxSeats    *int
}

// View es la representación pública de un curso.
type View struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Code              string    `json:"code"`
	Description       string    `json:"description"`
	FacultyID         *string   `json:"facultyId"`
	MaxSeats          int       `json:"maxSeats"`
	CurrentEnrollment int       `json:"currentEnrollment"`
	AvailableSeats    int       `json:"availableSeats"`
	IsAvailable       bool      `json:"isAvailable"`
	CreatedAt         time.Time `json:"createdAt"`
}

func ToView(c repository.Course) View {
	return View{
		ID:                c.ID,
		Name:              c.Name,
		Code:              c.Code,
		Description:       c.Description,
		FacultyID:         c.FacultyID,
		MaxSeats:          c.MaxSeats,
		CurrentEnrollment: c.CurrentEnrollment,
		AvailableSeats:    c.AvailableSeats(),
		IsAvailable:       c.IsAvailable(),
		CreatedAt:         c.CreatedAt,
	}
}

func toViews(cs []repository.Course) []View {
	out := make([]View, 0, len(cs))
	for _, c := range cs {
		out = append(out, ToView(c))
	}
	return out
}

type Service interface {
	Create(ctx context.Context, in Input, actorID string, meta audit.Meta) (*View, error)
	Update(ctx context.Context, id string, in Input, actorID string, meta audit.Meta) (*View, error)
	Delete(ctx context.Context, id, actorID string, meta audit.Meta) error

	Get(ctx context.Context, id string) (*View, error)
	List(ctx context.Context) ([]View, error)
	ListAvailable(ctx context.Context) ([]View, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]View, error)
	IsOwnedBy(ctx context.Context, courseID, facultyID string) (bool, error)
}

type Deps struct {
	Store  repository.DataAccess
	Ledger audit.Ledger
	Now    func() time.Time
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

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// apply valida y vuelca los campos presentes de in sobre c.
func apply(c *repository.Course, in Input) error {
	if in.Name != nil {
		if !validation.CourseName(str(in.Name)) {
			return fmt.Errorf("%w: name", ErrInvalidInput)
		}
		c.Name = str(in.Name)
	}
	if in.Code != nil {
		code := strings.ToUpper(str(in.Code))
		if !validation.CourseCode(code) {
			return fmt.Errorf("%w: code", ErrInvalidInput)
		}
		c.Code = code
	}
	if in.Description != nil {
		if !validation.Description(str(in.Description)) {
			return fmt.Errorf("%w: description", ErrInvalidInput)
		}
		c.Description = str(in.Description)
	}
	if in.MaxSeats != nil {
		if !validation.MaxSeats(*in.MaxSeats) {
			return fmt.Errorf("%w: maxSeats", ErrInvalidInput)
		}
		c.MaxSeats = *in.MaxSeats
	}
	if in.FacultyID != nil {
		if f := str(in.FacultyID); f == "" {
			c.FacultyID = nil
		} else {
			c.FacultyID = &f
		}
	}
	return nil
}

func checkFaculty(ctx context.Context, tx repository.Repositories, id *string) error {
	if id == nil {
		return nil
	}
	if !validation.ID(*id) {
		return ErrInvalidFaculty
	}
	u, err := tx.Users().GetByID(ctx, *id)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrInvalidFaculty
		}
		return fmt.Errorf("course: get faculty: %w", err)
	}
	if u.Role != types.RoleFaculty {
		return ErrInvalidFaculty
	}
	return nil
}

func (s *service) Create(ctx context.Context, in Input, actorID string, meta audit.Meta) (*View, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("course"),
		logger.Op("Create"),
	)
	if in.Name == nil || in.Code == nil || in.MaxSeats == nil {
		return nil, fmt.Errorf("%w: name, code and maxSeats are required", ErrInvalidInput)
	}

	now := s.deps.Now().UTC()
	c := repository.Course{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := apply(&c, in); err != nil {
		return nil, err
	}

	err := s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		if err := checkFaculty(ctx, tx, c.FacultyID); err != nil {
			return err
		}
		if err := tx.Courses().Create(ctx, c); err != nil {
			if repository.IsConflict(err) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("course: create: %w", err)
		}
		_, err := s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionCourseCreate,
			UserID:       actorID,
			ResourceType: audit.ResourceCourse,
			ResourceID:   c.ID,
			Details:      map[string]any{"code": c.Code, "name": c.Name, "maxSeats": c.MaxSeats},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		log.Debug("create failed", logger.Err(err))
		return nil, err
	}
	log.Info("course created", logger.CourseID(c.ID), logger.CourseCode(c.Code))
	v := ToView(c)
	return &v, nil
}

func (s *service) Update(ctx context.Context, id string, in Input, actorID string, meta audit.Meta) (*View, error) {
	if !validation.ID(id) {
		return nil, ErrNotFound
	}
	var updated repository.Course
	err := s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		cur, err := tx.Courses().GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("course: get: %w", err)
		}
		next := *cur
		// el código es inmutable una vez creado
		in.Code = nil
		if err := apply(&next, in); err != nil {
			return err
		}
		if in.FacultyID != nil {
			if err := checkFaculty(ctx, tx, next.FacultyID); err != nil {
				return err
			}
		}
		if next.MaxSeats < cur.CurrentEnrollment {
			return ErrSeatsBelow
		}
		next.UpdatedAt = s.deps.Now().UTC()
		if err := tx.Courses().Update(ctx, next); err != nil {
			switch {
			case repository.IsPreconditionFailed(err):
				return ErrSeatsBelow
			case repository.IsNotFound(err):
				return ErrNotFound
			}
			return fmt.Errorf("course: update: %w", err)
		}
		updated = next
		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionCourseUpdate,
			UserID:       actorID,
			ResourceType: audit.ResourceCourse,
			ResourceID:   id,
			Details:      map[string]any{"code": next.Code, "maxSeats": next.MaxSeats},
			IP:           meta.IP,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	v := ToView(updated)
	return &v, nil
}

func (s *service) Delete(ctx context.Context, id, actorID string, meta audit.Meta) error {
	if !validation.ID(id) {
		return ErrNotFound
	}
	return s.deps.Store.WithTx(ctx, func(tx repository.Repositories) error {
		cur, err := tx.Courses().GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("course: get: %w", err)
		}
		if err := tx.Courses().Delete(ctx, id); err != nil {
			switch {
			case repository.IsPreconditionFailed(err):
				return ErrHasEnrollments
			case repository.IsNotFound(err):
				return ErrNotFound
			}
			return fmt.Errorf("course: delete: %w", err)
		}
		_, err = s.deps.Ledger.Within(tx).Log(ctx, audit.Entry{
			Action:       audit.ActionCourseDelete,
			UserID:       actorID,
			ResourceType: audit.ResourceCourse,
			ResourceID:   id,
			Details:      map[string]any{"code": cur.Code},
			IP:           meta.IP,
		})
		return err
	})
}

func (s *service) Get(ctx context.Context, id string) (*View, error) {
	if !validation.ID(id) {
		return nil, ErrNotFound
	}
	c, err := s.deps.Store.Courses().GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("course: get: %w", err)
	}
	v := ToView(*c)
	return &v, nil
}

func (s *service) list(ctx context.Context, f repository.CourseFilter) ([]View, error) {
	cs, err := s.deps.Store.Courses().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("course: list: %w", err)
	}
	return toViews(cs), nil
}

func (s *service) List(ctx context.Context) ([]View, error) {
	return s.list(ctx, repository.CourseFilter{})
}

func (s *service) ListAvailable(ctx context.Context) ([]View, error) {
	return s.list(ctx, repository.CourseFilter{OnlyAvailable: true})
}

func (s *service) ListByFaculty(ctx context.Context, facultyID string) ([]View, error) {
	if !validation.ID(facultyID) {
		return []View{}, nil
	}
	return s.list(ctx, repository.CourseFilter{FacultyID: facultyID})
}

func (s *service) IsOwnedBy(ctx context.Context, courseID, facultyID string) (bool, error) {
	c, err := s.Get(ctx, courseID)
	if err != nil {
		return false, err
	}
	return c.FacultyID != nil && *c.FacultyID == facultyID, nil
}
