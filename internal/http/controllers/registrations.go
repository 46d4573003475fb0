package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/audit"
	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/domain/repository"
	"github.com/dropDatabas3/registrar/internal/domain/types"
	httperrors "github.com/dropDatabas3/registrar/internal/http/errors"
	"github.com/dropDatabas3/registrar/internal/http/helpers"
	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
	"github.com/dropDatabas3/registrar/internal/policy"
	"github.com/dropDatabas3/registrar/internal/registration"
	"github.com/dropDatabas3/registrar/internal/validation"
)

// Registrations maneja /api/registrations. La ventana de política se
// chequea acá, antes de tocar el ledger.
type Registrations struct {
	Service registration.Service
	Courses course.Service
	Policy  policy.Service
	Ledger  audit.Ledger
	Now     func() time.Time
}

// RegistrationView es lo que devuelven register y drop.
type RegistrationView struct {
	ID           string                        `json:"id"`
	CourseID     string                        `json:"courseId"`
	Status       repository.RegistrationStatus `json:"status"`
	RegisteredAt time.Time                     `json:"registeredAt"`
	DroppedAt    *time.Time                    `json:"droppedAt,omitempty"`
}

func registrationView(reg *repository.Registration) RegistrationView {
	return RegistrationView{
		ID:           reg.ID,
		CourseID:     reg.CourseID,
		Status:       reg.Status,
		RegisteredAt: reg.RegisteredAt,
		DroppedAt:    reg.DroppedAt,
	}
}

func (c *Registrations) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// window traduce el resultado de la política. Un valor corrupto cierra la
// ventana.
func window(ws policy.WindowStatus, err error) error {
	if err != nil {
		return httperrors.ErrInternal.WithCause(err)
	}
	if !ws.Allowed {
		return httperrors.ErrWindowClosed.WithMessage(ws.Message)
	}
	return nil
}

type registerCourseRequest struct {
	CourseID string `json:"courseId"`
}

func (c *Registrations) Register(w http.ResponseWriter, r *http.Request) {
	var req registerCourseRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if !validation.ID(req.CourseID) {
		fail(w, r, invalid("courseId is required"))
		return
	}
	if err := window(c.Policy.IsRegistrationOpen(r.Context(), c.now())); err != nil {
		fail(w, r, err)
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	reg, err := c.Service.Register(r.Context(), p.UserID, req.CourseID, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusCreated, "Successfully registered for course", registrationView(reg))
}

func (c *Registrations) Drop(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		fail(w, r, invalid("invalid course id"))
		return
	}
	if err := window(c.Policy.IsDropAllowed(r.Context(), c.now())); err != nil {
		fail(w, r, err)
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	reg, err := c.Service.Drop(r.Context(), p.UserID, id, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Course dropped successfully", registrationView(reg))
}

// My lista las inscripciones del alumno. ?status=registered|dropped.
func (c *Registrations) My(w http.ResponseWriter, r *http.Request) {
	status := repository.RegistrationStatus(r.URL.Query().Get("status"))
	switch status {
	case "", repository.StatusRegistered, repository.StatusDropped:
	default:
		fail(w, r, invalid("status must be registered or dropped"))
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	regs, err := c.Service.ListForStudent(r.Context(), p.UserID, status)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, regs)
}

func (c *Registrations) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := c.Service.Stats(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, st)
}

// CourseStudents devuelve el roster. Un docente sólo ve sus cursos.
func (c *Registrations) CourseStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		fail(w, r, invalid("invalid course id"))
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	if p.Role.RequiresOwnership(types.CapViewRoster) {
		owned, err := c.Courses.IsOwnedBy(r.Context(), id, p.UserID)
		if err != nil {
			fail(w, r, err)
			return
		}
		if !owned {
			mw.Deny(w, r, c.Ledger, p, map[string]any{"courseId": id, "reason": "not_course_owner"})
			return
		}
	}
	students, err := c.Service.EnrolledStudents(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, students)
}

func (c *Registrations) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "regID")
	if !validation.ID(id) {
		fail(w, r, invalid("invalid registration id"))
		return
	}
	v, err := c.Service.VerifyIntegrity(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, v)
}
