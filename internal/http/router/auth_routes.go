package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/registrar/internal/http/middlewares"
)

func registerAuthRoutes(r chi.Router, d Deps) {
	c := d.Auth
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", c.Register)
		r.With(d.limit("login", d.Limits.Login, mw.EmailIPKey)).Post("/login", c.Login)

		r.Group(func(r chi.Router) {
			r.Use(d.limit("otp", d.Limits.OTP, mw.UserIPKey))
			r.Post("/verify-otp", c.VerifyOTP)
			r.Post("/resend-otp", c.ResendOTP)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(d.Authenticator), mw.RequireMFA())
			r.Post("/logout", c.Logout)
			r.Get("/me", c.Me)
		})
	})
}
