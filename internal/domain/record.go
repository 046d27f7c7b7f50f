package domain

import (
	"errors"
	"time"
)

var (
	ErrMissingSecret = errors.New("secret is required")
	ErrMissingSite   = errors.New("site1 and site2 are required")
	ErrNoLocalSite   = errors.New("local site not found: either site1 or site2 must be this installation")
	ErrSameSite      = errors.New("site1 and site2 cannot be the same site")
)

// SiteLinkRecord is one established or in-progress link between two sites.
type SiteLinkRecord struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Secret    string    `json:"secret,omitempty"`
	Site1     string    `json:"site1,omitempty"`
	Site2     string    `json:"site2,omitempty"`
	LinkID    string    `json:"link_id,omitempty"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required before a record can be locked.
func (r *SiteLinkRecord) Validate(localSite string) error {
	if r.Secret == "" {
		return ErrMissingSecret
	}
	if r.Site1 == "" || r.Site2 == "" {
		return ErrMissingSite
	}
	if !IsLocal(r.Site1, r.Site2, localSite) {
		return ErrNoLocalSite
	}
	if r.Site1 == r.Site2 {
		return ErrSameSite
	}
	return nil
}

// Lock validates the record and, the first time it succeeds, derives and
// freezes the link id. A failed validation never sets a link id, but a link
// id frozen earlier is kept.
func (r *SiteLinkRecord) Lock(localSite string, d Digest) error {
	if err := r.Validate(localSite); err != nil {
		return err
	}
	if r.LinkID == "" {
		r.LinkID = d.LinkID(r.Secret, r.Site1, r.Site2)
	}
	return nil
}

// Locked reports whether the link id has been computed.
func (r *SiteLinkRecord) Locked() bool {
	return r.LinkID != ""
}

// Reset destroys the link material while keeping the record itself.
func (r *SiteLinkRecord) Reset() {
	r.Secret = ""
	r.Site1 = ""
	r.Site2 = ""
	r.LinkID = ""
}

// Remote returns the non-local site of the record.
func (r *SiteLinkRecord) Remote(localSite string) string {
	return RemoteOf(r.Site1, r.Site2, localSite)
}

// Clone returns a copy safe to hand out of a snapshot.
func (r *SiteLinkRecord) Clone() *SiteLinkRecord {
	c := *r
	return &c
}

// ShortID is a log-safe prefix of the link id.
func ShortID(linkID string) string {
	if len(linkID) <= 8 {
		return linkID
	}
	return linkID[:8]
}

// ErrRecordNotFound is returned by storage when a record id is unknown.
var ErrRecordNotFound = errors.New("site link record not found")
