package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/TremiDkhar/sitelink/internal/httpserver/deps"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

type readyzResponse struct {
	Ready       bool   `json:"ready"`
	Links       int    `json:"links"`
	LastRebuild string `json:"last_rebuild"`
	Redis       bool   `json:"redis"`
}

// Readyz is ready once the registry has been built and Redis answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := d.Registry.Snapshot()
		resp := readyzResponse{
			Links:       snap.Len(),
			LastRebuild: "never",
		}
		if built := snap.BuiltAt(); !built.IsZero() {
			resp.LastRebuild = built.UTC().Format(time.RFC3339)
		}

		if d.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Store.Ping(ctx); err != nil {
				d.Logger.Warn("readiness: redis ping failed", logger.Error(err))
			} else {
				resp.Redis = true
			}
		}

		resp.Ready = resp.Redis && !snap.BuiltAt().IsZero()

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
