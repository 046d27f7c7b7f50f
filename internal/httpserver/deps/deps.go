package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/TremiDkhar/sitelink/internal/links"
	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/peer"
	"github.com/TremiDkhar/sitelink/internal/protocol"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotSource exposes the current registry snapshot.
type SnapshotSource interface {
	Snapshot() *registry.Snapshot
}

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Version           string
	Commit            string
	BuildDate         string
	GoVersion         string
	TimeNow           func() time.Time  // for testing, defaults to time.Now
	AllowedHosts      []string          // Host headers allowed on admin endpoints
	AllowedCIDRS      []string          // IPs allowed on admin, readyz, reload and metrics endpoints
	TrustProxy        bool              // true if running behind a trusted reverse proxy (e.g., cloudflared)
	APIPrefix         string            // Prefix of the public protocol routes, e.g. /wp-json/dt-public/v1
	CheckBurst        int               // Rate limit burst on the check endpoint
	CheckRefillPerMin int               // Rate limit refill on the check endpoint
	Protocol          *protocol.Service // Token verification and CORS decisions
	Links             *links.Manager    // Record edit surface
	Peer              *peer.Client      // Outbound client for link status checks
	Registry          SnapshotSource    // Current link registry
	Store             Pinger            // Redis-backed record store
	Metrics           http.Handler      // Prometheus exposition handler (nil disables /metrics)
	ReloadTrigger     chan struct{}     // Channel to trigger manual registry reload
	PeerCheckTimeout  time.Duration     // Upper bound on a status check against a peer
}

// Now returns the configured clock.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
