package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/httpserver/handlers"
	"github.com/TremiDkhar/sitelink/internal/httpserver/mw"
)

func init() { Register(registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	allow := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(allow).Get("/readyz", handlers.Readyz(d))
	r.With(allow, mw.EnforceHost(d.AllowedHosts, d.Logger)).Post("/reload", handlers.Reload(d))
	if d.Metrics != nil {
		r.With(allow).Method("GET", "/metrics", d.Metrics)
	}
}
