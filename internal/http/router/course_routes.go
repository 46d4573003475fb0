package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/domain/types"
)

func registerCourseRoutes(r chi.Router, d Deps) {
	c := d.Courses
	r.Route("/courses", func(r chi.Router) {
		r.Get("/", c.List)
		r.With(d.can(types.CapViewAvailable)).Get("/available", c.Available)
		r.With(d.can(types.CapViewOwnCourses)).Get("/my-courses", c.Mine)
		r.Get("/{courseID}", c.Get)

		r.Group(func(r chi.Router) {
			r.Use(d.can(types.CapManageCourses))
			r.Post("/", c.Create)
			r.Put("/{courseID}", c.Update)
			r.Delete("/{courseID}", c.Delete)
		})
	})
}
