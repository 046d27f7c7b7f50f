package protocol

import (
	"time"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

// SnapshotSource supplies the latest registry snapshot.
type SnapshotSource interface {
	Snapshot() *registry.Snapshot
}

// Observer receives trust decisions (metrics).
type Observer interface {
	ObserveVerification(linked bool)
	ObserveCORS(authorized bool)
}

// Service issues and verifies transfer tokens and gates CORS for one
// installation.
type Service struct {
	source    SnapshotSource
	localSite string
	digest    domain.Digest
	now       func() time.Time
	observer  Observer
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithObserver reports every decision.
func WithObserver(o Observer) Option { return func(s *Service) { s.observer = o } }

// NewService builds the protocol service for localSite.
func NewService(source SnapshotSource, localSite string, digest domain.Digest, opts ...Option) *Service {
	s := &Service{
		source:    source,
		localSite: localSite,
		digest:    digest,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LocalSite returns the bare hostname of this installation.
func (s *Service) LocalSite() string { return s.localSite }

// Digest returns the configured digest.
func (s *Service) Digest() domain.Digest { return s.digest }

// Bucket returns the current hour bucket, for operators comparing clocks.
func (s *Service) Bucket() string { return domain.TimeBucket(s.now()) }

// Issue returns the transfer token for linkID in the current hour.
func (s *Service) Issue(linkID string) string {
	return s.digest.IssueToken(linkID, s.now())
}

// Verify reports whether token matches a registered link for the current hour.
// "Not linked" and "expired" are indistinguishable to the caller.
func (s *Service) Verify(token string) bool {
	_, ok := s.Match(token)
	return ok
}

// Match is Verify that also returns the matching link id.
func (s *Service) Match(token string) (string, bool) {
	linkID, ok := MatchToken(token, s.source.Snapshot(), s.digest, s.now())
	if s.observer != nil {
		s.observer.ObserveVerification(ok)
	}
	return linkID, ok
}

// TrustedOrigins returns the origins of every linked remote site.
func (s *Service) TrustedOrigins() []string {
	return TrustedOrigins(s.source.Snapshot(), s.localSite)
}

// AuthorizedOrigin reports whether a cross-origin response may be opened to origin.
func (s *Service) AuthorizedOrigin(origin string) bool {
	ok := AuthorizedOrigin(origin, s.source.Snapshot(), s.localSite)
	if s.observer != nil && origin != "" {
		s.observer.ObserveCORS(ok)
	}
	return ok
}
