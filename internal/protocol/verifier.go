package protocol

import (
	"crypto/subtle"
	"time"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

// MatchToken scans snap for the link whose current-bucket token equals token.
// Only the bucket of now is checked; a token issued in the previous hour does
// not match.
func MatchToken(token string, snap *registry.Snapshot, digest domain.Digest, now time.Time) (string, bool) {
	if token == "" || snap == nil || snap.Len() == 0 {
		return "", false
	}

	presented := []byte(token)
	var matched string
	snap.Each(func(linkID string, _ domain.SiteLinkRecord) bool {
		expected := digest.IssueToken(linkID, now)
		if subtle.ConstantTimeCompare([]byte(expected), presented) == 1 {
			matched = linkID
			return false
		}
		return true
	})
	return matched, matched != ""
}
