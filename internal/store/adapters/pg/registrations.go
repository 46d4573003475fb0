package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/registrar/internal/domain/repository"
)

type registrationRepo struct{ q querier }

const registrationColumns = `r.id, r.student_id, r.course_id, r.status, r.encrypted_data, r.integrity_hash,
	r.registered_at, r.dropped_at, r.updated_at`

func registrationDest(reg *repository.Registration, status *string) []any {
	return []any{&reg.ID, &reg.StudentID, &reg.CourseID, status, &reg.EncryptedData,
		&reg.IntegrityHash, &reg.RegisteredAt, &reg.DroppedAt, &reg.UpdatedAt}
}

func scanRegistration(row pgx.Row) (*repository.Registration, error) {
	var (
		reg    repository.Registration
		status string
	)
	if err := row.Scan(registrationDest(&reg, &status)...); err != nil {
		return nil, err
	}
	reg.Status = repository.RegistrationStatus(status)
	return &reg, nil
}

func (r *registrationRepo) Create(ctx context.Context, reg repository.Registration) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO registrations (id, student_id, course_id, status, encrypted_data, integrity_hash,
			registered_at, dropped_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		reg.ID, reg.StudentID, reg.CourseID, string(reg.Status), reg.EncryptedData, reg.IntegrityHash,
		reg.RegisteredAt, reg.DroppedAt, reg.UpdatedAt)
	return mapErr("create registration", err)
}

func (r *registrationRepo) Update(ctx context.Context, reg repository.Registration) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE registrations
		SET status = $2, encrypted_data = $3, integrity_hash = $4,
		    registered_at = $5, dropped_at = $6, updated_at = $7
		WHERE id = $1`,
		reg.ID, string(reg.Status), reg.EncryptedData, reg.IntegrityHash,
		reg.RegisteredAt, reg.DroppedAt, reg.UpdatedAt)
	if err != nil {
		return mapErr("update registration", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *registrationRepo) GetByID(ctx context.Context, id string) (*repository.Registration, error) {
	reg, err := scanRegistration(r.q.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id))
	if err != nil {
		return nil, mapErr("get registration", err)
	}
	return reg, nil
}

func (r *registrationRepo) GetForUpdate(ctx context.Context, studentID, courseID string) (*repository.Registration, error) {
	reg, err := scanRegistration(r.q.QueryRow(ctx, `
		SELECT `+registrationColumns+` FROM registrations r
		WHERE r.student_id = $1 AND r.course_id = $2
		FOR UPDATE`, studentID, courseID))
	if err != nil {
		return nil, mapErr("lock registration", err)
	}
	return reg, nil
}

func (r *registrationRepo) ListByStudent(ctx context.Context, studentID string, status repository.RegistrationStatus) ([]repository.RegistrationWithCourse, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+registrationColumns+`,
		       c.id, c.name, c.code, c.description, c.faculty_id, c.max_seats, c.current_enrollment, c.created_at, c.updated_at
		FROM registrations r
		JOIN courses c ON c.id = r.course_id
		WHERE r.student_id = $1 AND ($2 = '' OR r.status = $2)
		ORDER BY r.registered_at DESC`, studentID, string(status))
	if err != nil {
		return nil, mapErr("list registrations", err)
	}
	defer rows.Close()

	var out []repository.RegistrationWithCourse
	for rows.Next() {
		var (
			rc     repository.RegistrationWithCourse
			status string
			c      = &rc.Course
		)
		dest := append(registrationDest(&rc.Registration, &status),
			&c.ID, &c.Name, &c.Code, &c.Description, &c.FacultyID, &c.MaxSeats, &c.CurrentEnrollment, &c.CreatedAt, &c.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, mapErr("scan registration", err)
		}
		rc.Status = repository.RegistrationStatus(status)
		out = append(out, rc)
	}
	return out, mapErr("list registrations", rows.Err())
}

func (r *registrationRepo) ListEnrolled(ctx context.Context, courseID string) ([]repository.EnrolledStudent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT r.id, u.id, u.username, u.email, r.registered_at
		FROM registrations r
		JOIN users u ON u.id = r.student_id
		WHERE r.course_id = $1 AND r.status = 'registered'
		ORDER BY r.registered_at, u.username`, courseID)
	if err != nil {
		return nil, mapErr("list enrolled", err)
	}
	defer rows.Close()

	var out []repository.EnrolledStudent
	for rows.Next() {
		var s repository.EnrolledStudent
		if err := rows.Scan(&s.RegistrationID, &s.StudentID, &s.Username, &s.Email, &s.RegisteredAt); err != nil {
			return nil, mapErr("scan enrolled", err)
		}
		out = append(out, s)
	}
	return out, mapErr("list enrolled", rows.Err())
}

func (r *registrationRepo) Stats(ctx context.Context, top int) (*repository.RegistrationStats, error) {
	var st repository.RegistrationStats
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status = 'registered'),
		       COUNT(*) FILTER (WHERE status = 'dropped')
		FROM registrations`).Scan(&st.Active, &st.Dropped)
	if err != nil {
		return nil, mapErr("registration stats", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT c.id, c.code, c.name, COUNT(*) AS n
		FROM registrations r
		JOIN courses c ON c.id = r.course_id
		WHERE r.status = 'registered'
		GROUP BY c.id, c.code, c.name
		ORDER BY n DESC, c.code
		LIMIT $1`, top)
	if err != nil {
		return nil, mapErr("top courses", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc repository.CourseCount
		if err := rows.Scan(&cc.CourseID, &cc.Code, &cc.Name, &cc.Count); err != nil {
			return nil, mapErr("scan top course", err)
		}
		st.TopCourses = append(st.TopCourses, cc)
	}
	return &st, mapErr("top courses", rows.Err())
}
