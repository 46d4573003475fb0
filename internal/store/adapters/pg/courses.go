package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type courseRepo struct{ q querier }

const courseColumns = `id, name, code, description, faculty_id, max_seats, current_enrollment, created_at, updated_at`

func scanCourse(row pgx.Row) (*repository.Course, error) {
	var c repository.Course
	if err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.FacultyID,
		&c.MaxSeats, &c.CurrentEnrollment, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *courseRepo) Create(ctx context.Context, c repository.Course) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO courses (id, name, code, description, faculty_id, max_seats, current_enrollment, created_at, updated_at)
		VALUES ($1, $2, upper($3), $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Code, c.Description, c.FacultyID, c.MaxSeats, c.CurrentEnrollment, c.CreatedAt, c.UpdatedAt)
	return mapErr("create course", err)
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*repository.Course, error) {
	c, err := scanCourse(r.q.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("get course", err)
	}
	return c, nil
}

func (r *courseRepo) GetByCode(ctx context.Context, code string) (*repository.Course, error) {
	c, err := scanCourse(r.q.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE code = upper($1)`, code))
	if err != nil {
		return nil, mapErr("get course by code", err)
	}
	return c, nil
}

func (r *courseRepo) List(ctx context.Context, f repository.CourseFilter) ([]repository.Course, error) {
	var facultyID *string
	if f.FacultyID != "" {
		facultyID = &f.FacultyID
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+courseColumns+` FROM courses
		WHERE ($1::uuid IS NULL OR faculty_id = $1::uuid)
		  AND (NOT $2 OR current_enrollment < max_seats)
		ORDER BY code`, facultyID, f.OnlyAvailable)
	if err != nil {
		return nil, mapErr("list courses", err)
	}
	defer rows.Close()

	var out []repository.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, mapErr("scan course", err)
		}
		out = append(out, *c)
	}
	return out, mapErr("list courses", rows.Err())
}

func (r *courseRepo) Update(ctx context.Context, c repository.Course) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE courses
		SET name = $2, description = $3, faculty_id = $4, max_seats = $5, updated_at = $6
		WHERE id = $1 AND current_enrollment <= $5`,
		c.ID, c.Name, c.Description, c.FacultyID, c.MaxSeats, c.UpdatedAt)
	if err != nil {
		return mapErr("update course", err)
	}
	if tag.RowsAffected() == 0 {
		return guardMiss(ctx, r.q, "courses", c.ID, "update course")
	}
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM courses WHERE id = $1 AND current_enrollment = 0`, id)
	if err != nil {
		return mapErr("delete course", err)
	}
	if tag.RowsAffected() == 0 {
		return guardMiss(ctx, r.q, "courses", id, "delete course")
	}
	return nil
}

// IncrementEnrollment es el único punto donde se consume un cupo: el
// WHERE hace que dos transacciones concurrentes nunca superen max_seats.
func (r *courseRepo) IncrementEnrollment(ctx context.Context, id string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		UPDATE courses SET current_enrollment = current_enrollment + 1, updated_at = NOW()
		WHERE id = $1 AND current_enrollment < max_seats
		RETURNING current_enrollment`, id).Scan(&n)
	if err != nil {
		if repository.IsNotFound(mapErr("increment enrollment", err)) {
			return 0, guardMiss(ctx, r.q, "courses", id, "increment enrollment")
		}
		return 0, mapErr("increment enrollment", err)
	}
	return n, nil
}

func (r *courseRepo) DecrementEnrollment(ctx context.Context, id string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		UPDATE courses SET current_enrollment = current_enrollment - 1, updated_at = NOW()
		WHERE id = $1 AND current_enrollment > 0
		RETURNING current_enrollment`, id).Scan(&n)
	if err != nil {
		if repository.IsNotFound(mapErr("decrement enrollment", err)) {
			return 0, guardMiss(ctx, r.q, "courses", id, "decrement enrollment")
		}
		return 0, mapErr("decrement enrollment", err)
	}
	return n, nil
}
