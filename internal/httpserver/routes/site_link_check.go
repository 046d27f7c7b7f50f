package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/httpserver/handlers"
	"github.com/TremiDkhar/sitelink/internal/httpserver/mw"
	"github.com/TremiDkhar/sitelink/internal/peer"
)

func init() { Register(registerSiteLinkCheck) }

// CORS is opened on the peer-facing check path only, never on admin or ops.
func registerSiteLinkCheck(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.CheckBurst,
		RefillPerIPPerMin: d.CheckRefillPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Now:               d.TimeNow,
		Logger:            d.Logger,
	})
	cors := mw.CORSGate(d.Protocol, d.Logger)

	path := d.APIPrefix + peer.CheckPath
	r.With(cors, limit).Post(path, handlers.SiteLinkCheck(d))
	// authorised preflights are answered by the gate before reaching this
	r.With(cors).Options(path, handlers.MethodNotAllowed("POST, OPTIONS"))
}
