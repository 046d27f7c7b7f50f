package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

// Loader lists every stored record; the registry is rebuilt from it in full.
type Loader interface {
	LoadAll(ctx context.Context) ([]*domain.SiteLinkRecord, error)
}

// Publisher stores the rebuilt projection so other processes can read it.
type Publisher interface {
	PublishRegistry(ctx context.Context, records []*domain.SiteLinkRecord) error
}

// Observer receives rebuild outcomes (metrics).
type Observer interface {
	ObserveRebuild(links int, err error)
}

// Registry holds the current link snapshot. Readers always get a complete
// snapshot; rebuilds replace it wholesale.
type Registry struct {
	loader    Loader
	publisher Publisher
	observer  Observer
	logger    logger.Logger
	now       func() time.Time

	rebuildMu sync.Mutex
	current   atomic.Pointer[Snapshot]
}

// Option configures a Registry.
type Option func(*Registry)

// WithPublisher publishes each rebuilt projection (best effort).
func WithPublisher(p Publisher) Option { return func(r *Registry) { r.publisher = p } }

// WithObserver reports rebuild outcomes.
func WithObserver(o Observer) Option { return func(r *Registry) { r.observer = o } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(r *Registry) { r.now = now } }

// New creates a registry with an empty snapshot.
func New(loader Loader, log logger.Logger, opts ...Option) *Registry {
	r := &Registry{
		loader: loader,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.current.Store(Empty())
	return r
}

// Snapshot returns the latest complete snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Rebuild reloads every record and swaps in a new snapshot. On load failure
// the previous snapshot stays in place and the error is returned.
func (r *Registry) Rebuild(ctx context.Context) (*Snapshot, error) {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	records, err := r.loader.LoadAll(ctx)
	if err != nil {
		r.observe(r.Snapshot().Len(), err)
		return nil, fmt.Errorf("failed to load site links: %w", err)
	}

	snap := r.swap(records)

	if r.publisher != nil {
		if err := r.publisher.PublishRegistry(ctx, snap.Records()); err != nil {
			// In-memory snapshot is authoritative for this process.
			r.logger.Warn("failed to publish registry cache", logger.Error(err))
		}
	}

	r.observe(snap.Len(), nil)
	r.logger.Info("registry rebuilt",
		logger.Int("records", len(records)),
		logger.Int("links", snap.Len()))

	return snap, nil
}

// Warm installs a previously published projection, but only while the
// registry has never been built. Used at startup before the first rebuild.
func (r *Registry) Warm(records []*domain.SiteLinkRecord) bool {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	if !r.Snapshot().BuiltAt().IsZero() {
		return false
	}
	r.swap(records)
	return true
}

func (r *Registry) swap(records []*domain.SiteLinkRecord) *Snapshot {
	snap, dropped := NewSnapshot(records, r.now())
	for _, id := range dropped {
		r.logger.Warn("duplicate link id, record shadowed", logger.String("record_id", id))
	}
	r.current.Store(snap)
	return snap
}

func (r *Registry) observe(links int, err error) {
	if r.observer != nil {
		r.observer.ObserveRebuild(links, err)
	}
}
