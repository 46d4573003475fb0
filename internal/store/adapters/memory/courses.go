package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type courseRepo struct{ v view }

func copyCourse(c repository.Course) repository.Course {
	if c.FacultyID != nil {
		id := *c.FacultyID
		c.FacultyID = &id
	}
	return c
}

func (r *courseRepo) Create(ctx context.Context, c repository.Course) error {
	c.Code = strings.ToUpper(c.Code)
	return r.v.do(func(s *state) error {
		if _, ok := s.courses[c.ID]; ok {
			return repository.ErrConflict
		}
		for _, other := range s.courses {
			if other.Code == c.Code {
				return repository.ErrConflict
			}
		}
		if c.FacultyID != nil {
			if _, ok := s.users[*c.FacultyID]; !ok {
				return repository.ErrInvalidInput
			}
		}
		s.courses[c.ID] = copyCourse(c)
		return nil
	})
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*repository.Course, error) {
	return r.get(func(c repository.Course) bool { return c.ID == id })
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*repository.Course, error) {
	code = strings.ToUpper(code)
	return r.get(func(c repository.Course) bool { return c.Code == code })
}

func (r *courseRepo) get(match func(repository.Course) bool) (*repository.Course, error) {
	var out *repository.Course
	err := r.v.do(func(s *state) error {
		for _, c := range s.courses {
			if match(c) {
				cp := copyCourse(c)
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *courseRepo) List(ctx context.Context, f repository.CourseFilter) ([]repository.Course, error) {
	var out []repository.Course
	err := r.v.do(func(s *state) error {
		for _, c := range s.courses {
			if f.FacultyID != "" && !c.OwnedBy(f.FacultyID) {
				continue
			}
			if f.OnlyAvailable && !c.IsAvailable() {
				continue
			}
			out = append(out, copyCourse(c))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

func (r *courseRepo) Update(ctx context.Context, c repository.Course) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.courses[c.ID]
		if !ok {
			return repository.ErrNotFound
		}
		if c.MaxSeats < cur.CurrentEnrollment {
			return repository.ErrPreconditionFailed
		}
		cur.Name = c.Name
		cur.Description = c.Description
		cur.FacultyID = c.FacultyID
		cur.MaxSeats = c.MaxSeats
		cur.UpdatedAt = c.UpdatedAt
		s.courses[c.ID] = copyCourse(cur)
		return nil
	})
}

// Delete borra el curso y, como la FK en cascada de postgres, sus
// inscripciones (que a esta altura sólo pueden estar dropped).
func (r *courseRepo) Delete(ctx context.Context, id string) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.courses[id]
		if !ok {
			return repository.ErrNotFound
		}
		if cur.CurrentEnrollment > 0 {
			return repository.ErrPreconditionFailed
		}
		delete(s.courses, id)
		for rid, reg := range s.regs {
			if reg.CourseID == id {
				delete(s.regs, rid)
			}
		}
		return nil
	})
}

func (r *courseRepo) IncrementEnrollment(ctx context.Context, id string) (int, error) {
	return r.adjust(id, +1)
}

func (r *courseRepo) DecrementEnrollment(ctx context.Context, id string) (int, error) {
	return r.adjust(id, -1)
}

func (r *courseRepo) adjust(id string, delta int) (int, error) {
	n := 0
	err := r.v.do(func(s *state) error {
		c, ok := s.courses[id]
		if !ok {
			return repository.ErrNotFound
		}
		next := c.CurrentEnrollment + delta
		if next < 0 || next > c.MaxSeats {
			return repository.ErrPreconditionFailed
		}
		c.CurrentEnrollment = next
		s.courses[id] = c
		n = next
		return nil
	})
	return n, err
}
