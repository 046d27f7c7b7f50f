package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/httpserver/handlers"
	"github.com/TremiDkhar/sitelink/internal/httpserver/mw"
)

func init() { Register(registerAdmin) }

func registerAdmin(r chi.Router, d deps.Deps) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))

		r.Get("/timestamp", handlers.Timestamp(d))
		r.Route("/links", func(r chi.Router) {
			r.Get("/", handlers.ListLinks(d))
			r.Post("/", handlers.SaveLink(d))
			r.Get("/{id}", handlers.GetLink(d))
			r.Delete("/{id}", handlers.DeleteLink(d))
			r.Post("/{id}/reset", handlers.ResetLink(d))
			r.Get("/{id}/status", handlers.LinkStatus(d))
		})
	})
}
