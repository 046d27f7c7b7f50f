package mw

import (
	"net/http"

	"github.com/TremiDkhar/sitelink/internal/logger"
)

const (
	corsAllowMethods  = "GET, POST, HEAD, OPTIONS"
	corsAllowHeaders  = "Content-Type"
	corsExposeHeaders = "Link"
)

// OriginAuthorizer decides whether a request origin belongs to a linked site.
type OriginAuthorizer interface {
	AuthorizedOrigin(origin string) bool
}

// CORSGate opens a single response to the exact requesting origin when that
// origin is a linked remote site. Unknown origins get no CORS headers at all.
// Authorised preflights are answered directly with 204.
func CORSGate(auth OriginAuthorizer, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			if origin == "" || !auth.AuthorizedOrigin(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposeHeaders)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				log.Debug("cors preflight answered", logger.String("origin", origin))
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
