package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registrars []entry

// Register adds a route group, optionally wrapped in its own middlewares.
// Called from init() in each route file.
func Register(reg Registrar, mws ...Middleware) {
	registrars = append(registrars, entry{reg: reg, mws: mws})
}

// RegisterAll mounts every registered group on r. Called once from httpserver.New.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registrars {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(e.mws...), d)
	}
}
