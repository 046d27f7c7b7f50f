package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TremiDkhar/sitelink/internal/domain"
)

// PublishRegistry replaces the published projection in one MULTI/EXEC:
// the staging hash is filled then renamed over the live key, so readers
// see the old or the new projection, never a mix.
func (s *Store) PublishRegistry(ctx context.Context, records []*domain.SiteLinkRecord) error {
	values := make([]interface{}, 0, 2*len(records))
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", record.ID, err)
		}
		values = append(values, record.LinkID, string(data))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, KeyRegistryStaging)
		if len(values) == 0 {
			pipe.Del(ctx, KeyRegistry)
			return nil
		}
		pipe.HSet(ctx, KeyRegistryStaging, values...)
		pipe.Rename(ctx, KeyRegistryStaging, KeyRegistry)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish registry: %w", err)
	}

	return nil
}

// LoadRegistry reads the published projection back.
func (s *Store) LoadRegistry(ctx context.Context) ([]*domain.SiteLinkRecord, error) {
	entries, err := s.client.HGetAll(ctx, KeyRegistry).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	records := make([]*domain.SiteLinkRecord, 0, len(entries))
	for linkID, raw := range entries {
		var record domain.SiteLinkRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal registry entry %s: %w", domain.ShortID(linkID), err)
		}
		records = append(records, &record)
	}

	return records, nil
}
