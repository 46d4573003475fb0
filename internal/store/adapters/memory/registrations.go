package memory

import (
	"context"
	"sort"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type registrationRepo struct{ v view }

func copyRegistration(r repository.Registration) repository.Registration {
	if r.DroppedAt != nil {
		t := *r.DroppedAt
		r.DroppedAt = &t
	}
	return r
}

func (r *registrationRepo) Create(ctx context.Context, reg repository.Registration) error {
	return r.v.do(func(s *state) error {
		if _, ok := s.regs[reg.ID]; ok {
			return repository.ErrConflict
		}
		for _, other := range s.regs {
			if other.StudentID == reg.StudentID && other.CourseID == reg.CourseID {
				return repository.ErrConflict
			}
		}
		if _, ok := s.users[reg.StudentID]; !ok {
			return repository.ErrInvalidInput
		}
		if _, ok := s.courses[reg.CourseID]; !ok {
			return repository.ErrInvalidInput
		}
		s.regs[reg.ID] = copyRegistration(reg)
		return nil
	})
}

func (r *registrationRepo) Update(ctx context.Context, reg repository.Registration) error {
	return r.v.do(func(s *state) error {
		cur, ok := s.regs[reg.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Status = reg.Status
		cur.EncryptedData = reg.EncryptedData
		cur.IntegrityHash = reg.IntegrityHash
		cur.RegisteredAt = reg.RegisteredAt
		cur.DroppedAt = reg.DroppedAt
		cur.UpdatedAt = reg.UpdatedAt
		s.regs[reg.ID] = copyRegistration(cur)
		return nil
	})
}

func (r *registrationRepo) GetByID(ctx context.Context, id string) (*repository.Registration, error) {
	var out repository.Registration
	err := r.v.do(func(s *state) error {
		reg, ok := s.regs[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyRegistration(reg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetForUpdate no necesita bloquear: dentro de WithTx el mutex ya está tomado.
func (r *registrationRepo) GetForUpdate(ctx context.Context, studentID, courseID string) (*repository.Registration, error) {
	var out repository.Registration
	err := r.v.do(func(s *state) error {
		for _, reg := range s.regs {
			if reg.StudentID == studentID && reg.CourseID == courseID {
				out = copyRegistration(reg)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *registrationRepo) ListByStudent(ctx context.Context, studentID string, status repository.RegistrationStatus) ([]repository.RegistrationWithCourse, error) {
	var out []repository.RegistrationWithCourse
	err := r.v.do(func(s *state) error {
		for _, reg := range s.regs {
			if reg.StudentID != studentID || (status != "" && reg.Status != status) {
				continue
			}
			c, ok := s.courses[reg.CourseID]
			if !ok {
				continue
			}
			out = append(out, repository.RegistrationWithCourse{
				Registration: copyRegistration(reg),
				Course:       copyCourse(c),
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, err
}

func (r *registrationRepo) ListEnrolled(ctx context.Context, courseID string) ([]repository.EnrolledStudent, error) {
	var out []repository.EnrolledStudent
	err := r.v.do(func(s *state) error {
		for _, reg := range s.regs {
			if reg.CourseID != courseID || reg.Status != repository.StatusRegistered {
				continue
			}
			u, ok := s.users[reg.StudentID]
			if !ok {
				continue
			}
			out = append(out, repository.EnrolledStudent{
				RegistrationID: reg.ID,
				StudentID:      u.ID,
				Username:       u.Username,
				Email:          u.Email,
				RegisteredAt:   reg.RegisteredAt,
			})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, err
}

func (r *registrationRepo) Stats(ctx context.Context, top int) (*repository.RegistrationStats, error) {
	st := &repository.RegistrationStats{}
	err := r.v.do(func(s *state) error {
		counts := map[string]int{}
		for _, reg := range s.regs {
			switch reg.Status {
			case repository.StatusRegistered:
				st.Active++
				counts[reg.CourseID]++
			case repository.StatusDropped:
				st.Dropped++
			}
		}
		for id, n := range counts {
			c := s.courses[id]
			st.TopCourses = append(st.TopCourses, repository.CourseCount{CourseID: id, Code: c.Code, Name: c.Name, Count: n})
		}
		return nil
	})
	sort.Slice(st.TopCourses, func(i, j int) bool {
		a, b := st.TopCourses[i], st.TopCourses[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Code < b.Code
	})
	if top >= 0 && len(st.TopCourses) > top {
		st.TopCourses = st.TopCourses[:top]
	}
	return st, err
}
