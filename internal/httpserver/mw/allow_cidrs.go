package mw

import (
	"net/http"

	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/utils"
)

// AllowOnlyCIDRS restricts a route to clients in the allow-list (exact IPs or
// CIDRs). An empty list disables the check.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("client ip not in allow-list",
					logger.String("client_ip", ip),
					logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, "rest_forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
