package registry

import (
	"sort"
	"time"

	"github.com/TremiDkhar/sitelink/internal/domain"
)

// Snapshot is an immutable view of the registry: linkId -> record.
// Only published, locked records are admitted.
type Snapshot struct {
	links   map[string]*domain.SiteLinkRecord
	ids     []string // sorted link ids
	builtAt time.Time
}

// NewSnapshot builds a snapshot from a full record listing. When two records
// share a link id, the later one wins and the earlier is reported in dropped.
func NewSnapshot(records []*domain.SiteLinkRecord, builtAt time.Time) (snap *Snapshot, dropped []string) {
	links := make(map[string]*domain.SiteLinkRecord, len(records))
	for _, rec := range records {
		if rec == nil || !rec.Published || !rec.Locked() {
			continue
		}
		if prev, ok := links[rec.LinkID]; ok {
			dropped = append(dropped, prev.ID)
		}
		links[rec.LinkID] = rec.Clone()
	}

	ids := make([]string, 0, len(links))
	for id := range links {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &Snapshot{links: links, ids: ids, builtAt: builtAt}, dropped
}

// Empty returns a snapshot with no links.
func Empty() *Snapshot {
	return &Snapshot{links: map[string]*domain.SiteLinkRecord{}}
}

// Len returns the number of links.
func (s *Snapshot) Len() int { return len(s.ids) }

// BuiltAt returns when the snapshot was built (zero for Empty).
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Lookup returns a copy of the record registered under linkID.
func (s *Snapshot) Lookup(linkID string) (*domain.SiteLinkRecord, bool) {
	rec, ok := s.links[linkID]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// LinkIDs returns every link id in sorted order.
func (s *Snapshot) LinkIDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Records returns copies of every record, ordered by link id.
func (s *Snapshot) Records() []*domain.SiteLinkRecord {
	out := make([]*domain.SiteLinkRecord, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.links[id].Clone())
	}
	return out
}

// Each calls fn for every link until fn returns false. The record is passed
// by value so callers cannot mutate the snapshot.
func (s *Snapshot) Each(fn func(linkID string, rec domain.SiteLinkRecord) bool) {
	for _, id := range s.ids {
		if !fn(id, *s.links[id]) {
			return
		}
	}
}
