package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/course"
	"github.com/dropDatabas3/registrar/internal/http/helpers"
	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
	"github.com/dropDatabas3/registrar/internal/validation"
)

// Courses maneja /api/courses.
type Courses struct {
	Service course.Service
}

type courseRequest struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	FacultyID   *string `json:"facultyId"`
	MaxSeats    *int    `json:"maxSeats"`
}

func (req courseRequest) input() course.Input {
	return course.Input{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		FacultyID:   req.FacultyID,
		MaxSeats:    req.MaxSeats,
	}
}

func courseID(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "courseID")
	return id, validation.ID(id)
}

func (c *Courses) List(w http.ResponseWriter, r *http.Request) {
	views, err := c.Service.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, views)
}

func (c *Courses) Available(w http.ResponseWriter, r *http.Request) {
	views, err := c.Service.ListAvailable(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, views)
}

// Mine lista los cursos del docente autenticado.
func (c *Courses) Mine(w http.ResponseWriter, r *http.Request) {
	p := mw.MustGetPrincipal(r.Context())
	views, err := c.Service.ListByFaculty(r.Context(), p.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, views)
}

func (c *Courses) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		fail(w, r, invalid("invalid course id"))
		return
	}
	v, err := c.Service.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteData(w, http.StatusOK, v)
}

func (c *Courses) Create(w http.ResponseWriter, r *http.Request) {
	var req courseRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	v, err := c.Service.Create(r.Context(), req.input(), p.UserID, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusCreated, "Course created successfully", v)
}

func (c *Courses) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		fail(w, r, invalid("invalid course id"))
		return
	}
	var req courseRequest
	if err := helpers.ReadJSON(w, r, &req); err != nil {
		fail(w, r, err)
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	v, err := c.Service.Update(r.Context(), id, req.input(), p.UserID, helpers.Meta(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Course updated successfully", v)
}

func (c *Courses) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(r)
	if !ok {
		fail(w, r, invalid("invalid course id"))
		return
	}
	p := mw.MustGetPrincipal(r.Context())
	if err := c.Service.Delete(r.Context(), id, p.UserID, helpers.Meta(r)); err != nil {
		fail(w, r, err)
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Course deleted successfully", nil)
}
