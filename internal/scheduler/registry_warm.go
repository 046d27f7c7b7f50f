package scheduler

import (
	"context"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

// CacheReader reads the last published registry projection.
type CacheReader interface {
	LoadRegistry(ctx context.Context) ([]*domain.SiteLinkRecord, error)
}

// Warmer installs a projection into an unbuilt registry.
type Warmer interface {
	Warm(records []*domain.SiteLinkRecord) bool
}

// RegistryWarmer seeds the in-memory registry from the published cache on
// startup, before the first full rebuild.
type RegistryWarmer struct {
	cache    CacheReader
	registry Warmer
	logger   logger.Logger
}

// NewRegistryWarmer creates a new registry warmer
func NewRegistryWarmer(cache CacheReader, reg Warmer, log logger.Logger) *RegistryWarmer {
	return &RegistryWarmer{
		cache:    cache,
		registry: reg,
		logger:   log,
	}
}

// Warm loads the published projection into the registry.
func (rw *RegistryWarmer) Warm(ctx context.Context) error {
	records, err := rw.cache.LoadRegistry(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		rw.logger.Info("no published registry found in redis")
		return nil
	}

	if rw.registry.Warm(records) {
		rw.logger.Info("registry warmed from redis",
			logger.Int("links", len(records)))
	}

	return nil
}
