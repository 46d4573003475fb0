package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/domain/types"
	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
)

func registerRegistrationRoutes(r chi.Router, d Deps) {
	c := d.Registrations
	r.Route("/registrations", func(r chi.Router) {
		r.With(
			d.can(types.CapRegister),
			d.limit("registration", d.Limits.Registration, mw.PrincipalKey),
		).Post("/", c.Register)
		r.With(d.can(types.CapRegister)).Delete("/{courseID}", c.Drop)
		r.With(d.can(types.CapViewOwnRegistrations)).Get("/my", c.My)
		r.With(d.can(types.CapViewStats)).Get("/stats", c.Stats)
		r.With(d.can(types.CapViewRoster)).Get("/course/{courseID}/students", c.CourseStudents)
		r.With(d.can(types.CapVerifyIntegrity)).Get("/{regID}/verify", c.Verify)
	})
}
