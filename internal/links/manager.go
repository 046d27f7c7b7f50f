// Package links is the record edit surface: it creates, updates, resets and
// deletes site link records, locks them when complete and rebuilds the
// registry after every change.
package links

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

var (
	// ErrNotFound is returned for unknown record ids.
	ErrNotFound = domain.ErrRecordNotFound
	// ErrLocked is returned when a locked record's link material is edited.
	ErrLocked = errors.New("record is locked: reset it before changing secret or sites")
	// ErrRegistryStale is returned when a change was persisted but the
	// registry could not be rebuilt. The next reload picks the change up.
	ErrRegistryStale = errors.New("change saved but registry rebuild failed")
)

// Store is the persistence the manager writes through.
type Store interface {
	SaveRecord(ctx context.Context, record *domain.SiteLinkRecord) error
	GetRecord(ctx context.Context, id string) (*domain.SiteLinkRecord, error)
	DeleteRecord(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]*domain.SiteLinkRecord, error)
}

// Rebuilder rebuilds the registry from the store.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*registry.Snapshot, error)
}

// Input is an edit submitted by an operator. Nil fields are left unchanged.
type Input struct {
	ID        string  `json:"id,omitempty" yaml:"id,omitempty"`
	Label     *string `json:"label,omitempty" yaml:"label,omitempty"`
	Secret    *string `json:"secret,omitempty" yaml:"secret,omitempty"`
	Site1     *string `json:"site1,omitempty" yaml:"site1,omitempty"`
	Site2     *string `json:"site2,omitempty" yaml:"site2,omitempty"`
	Published *bool   `json:"published,omitempty" yaml:"published,omitempty"`
}

// Result describes a saved record. LockErr explains why a record is not
// (yet) locked; it is not a save failure.
type Result struct {
	Record  *domain.SiteLinkRecord
	Created bool
	LockErr error
}

// Manager applies record edits.
type Manager struct {
	store     Store
	rebuilder Rebuilder
	localSite string
	digest    domain.Digest
	logger    logger.Logger
	now       func() time.Time
}

// NewManager creates a manager for localSite.
func NewManager(store Store, rebuilder Rebuilder, localSite string, digest domain.Digest, log logger.Logger) *Manager {
	return &Manager{
		store:     store,
		rebuilder: rebuilder,
		localSite: localSite,
		digest:    digest,
		logger:    log,
		now:       time.Now,
	}
}

// Save creates or updates a record, attempts to lock it and rebuilds the registry.
// When only the rebuild fails, the saved result is returned together with an
// error wrapping ErrRegistryStale.
func (m *Manager) Save(ctx context.Context, in Input) (*Result, error) {
	record, created, err := m.load(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	if err := m.apply(record, in, created); err != nil {
		return nil, err
	}

	lockErr := record.Lock(m.localSite, m.digest)
	record.UpdatedAt = m.now()

	if err := m.store.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save site link: %w", err)
	}

	switch {
	case lockErr != nil && record.Locked():
		// link material is frozen, so the old link id stays in the registry
		m.logger.Warn("locked site link no longer validates against the local site",
			logger.String("record_id", record.ID),
			logger.String("link_id", domain.ShortID(record.LinkID)),
			logger.String("local_site", m.localSite),
			logger.String("reason", lockErr.Error()))
	case lockErr != nil:
		m.logger.Info("site link saved but not locked",
			logger.String("record_id", record.ID),
			logger.String("reason", lockErr.Error()))
	default:
		m.logger.Info("site link saved",
			logger.String("record_id", record.ID),
			logger.String("link_id", domain.ShortID(record.LinkID)),
			logger.String("remote", record.Remote(m.localSite)))
	}

	res := &Result{Record: record, Created: created, LockErr: lockErr}
	return res, m.rebuild(ctx)
}

// Reset destroys the link material of a record and rebuilds the registry.
// Like Save, a failed rebuild returns the reset record with ErrRegistryStale.
func (m *Manager) Reset(ctx context.Context, id string) (*domain.SiteLinkRecord, error) {
	record, err := m.store.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Reset()
	record.UpdatedAt = m.now()
	if err := m.store.SaveRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to reset site link: %w", err)
	}

	m.logger.Info("site link reset", logger.String("record_id", id))
	return record, m.rebuild(ctx)
}

// Delete removes a record and rebuilds the registry.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := m.store.GetRecord(ctx, id); err != nil {
		return err
	}
	if err := m.store.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("failed to delete site link: %w", err)
	}

	m.logger.Info("site link deleted", logger.String("record_id", id))
	return m.rebuild(ctx)
}

// Get returns one record.
func (m *Manager) Get(ctx context.Context, id string) (*domain.SiteLinkRecord, error) {
	return m.store.GetRecord(ctx, id)
}

// List returns every stored record ordered by label then id.
func (m *Manager) List(ctx context.Context) ([]*domain.SiteLinkRecord, error) {
	records, err := m.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Label != records[j].Label {
			return records[i].Label < records[j].Label
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

// LocalSite returns the bare hostname the manager validates against.
func (m *Manager) LocalSite() string { return m.localSite }

func (m *Manager) load(ctx context.Context, id string) (*domain.SiteLinkRecord, bool, error) {
	if id != "" {
		record, err := m.store.GetRecord(ctx, id)
		if err == nil {
			return record, false, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, false, err
		}
	} else {
		id = uuid.NewString()
	}

	secret, err := domain.GenerateSecret()
	if err != nil {
		return nil, false, err
	}
	now := m.now()
	return &domain.SiteLinkRecord{
		ID:        id,
		Secret:    secret,
		Published: true,
		CreatedAt: now,
	}, true, nil
}

func (m *Manager) apply(record *domain.SiteLinkRecord, in Input, created bool) error {
	secret, site1, site2 := record.Secret, record.Site1, record.Site2
	if in.Secret != nil {
		secret = *in.Secret
	}
	if in.Site1 != nil {
		site1 = domain.BareHost(*in.Site1)
	}
	if in.Site2 != nil {
		site2 = domain.BareHost(*in.Site2)
	}

	if !created && record.Locked() &&
		(secret != record.Secret || site1 != record.Site1 || site2 != record.Site2) {
		return ErrLocked
	}

	record.Secret, record.Site1, record.Site2 = secret, site1, site2
	if in.Label != nil {
		record.Label = *in.Label
	}
	if in.Published != nil {
		record.Published = *in.Published
	}
	return nil
}

func (m *Manager) rebuild(ctx context.Context) error {
	if _, err := m.rebuilder.Rebuild(ctx); err != nil {
		m.logger.Error("registry rebuild failed after a saved change", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrRegistryStale, err)
	}
	return nil
}
