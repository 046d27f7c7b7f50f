package protocol

import (
	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

// TrustedOrigins lists "https://<remote site>" for every link in snap.
func TrustedOrigins(snap *registry.Snapshot, localSite string) []string {
	if snap == nil {
		return nil
	}
	origins := make([]string, 0, snap.Len())
	snap.Each(func(_ string, rec domain.SiteLinkRecord) bool {
		origins = append(origins, domain.OriginOf(rec.Remote(localSite)))
		return true
	})
	return origins
}

// AuthorizedOrigin reports whether origin exactly equals a trusted origin.
// Matching is case-sensitive with the scheme fixed to https.
func AuthorizedOrigin(origin string, snap *registry.Snapshot, localSite string) bool {
	if origin == "" || snap == nil {
		return false
	}
	authorized := false
	snap.Each(func(_ string, rec domain.SiteLinkRecord) bool {
		if origin == domain.OriginOf(rec.Remote(localSite)) {
			authorized = true
			return false
		}
		return true
	})
	return authorized
}
