package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/registrar/internal/domain/types"
)

func registerAdminRoutes(r chi.Router, d Deps) {
	c := d.Admin
	r.Route("/admin", func(r chi.Router) {
		r.With(d.can(types.CapManageUsers)).Get("/dashboard", c.Dashboard)

		r.Group(func(r chi.Router) {
			r.Use(d.can(types.CapManageUsers))
			r.Get("/users", c.Users)
			r.Put("/users/{userID}/status", c.UpdateUserStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.can(types.CapManagePolicy))
			r.Get("/policies", c.Policies)
			r.Put("/policies", c.UpdatePolicy)
		})

		r.Group(func(r chi.Router) {
			r.Use(d.can(types.CapViewAudit))
			r.Get("/audit-logs", c.AuditLogs)
			r.Get("/audit-logs/{logID}/verify", c.VerifyAuditLog)
		})
	})
}
