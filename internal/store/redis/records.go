package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TremiDkhar/sitelink/internal/domain"
)

// Store persists site link records and the published registry in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks the connection (readiness).
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveRecord stores a record and indexes its ID
func (s *Store) SaveRecord(ctx context.Context, record *domain.SiteLinkRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := s.client.Set(ctx, RecordKey(record.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	if err := s.client.SAdd(ctx, KeyAllRecords, record.ID).Err(); err != nil {
		return fmt.Errorf("failed to add record to set: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by ID
func (s *Store) GetRecord(ctx context.Context, id string) (*domain.SiteLinkRecord, error) {
	data, err := s.client.Get(ctx, RecordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var record domain.SiteLinkRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return &record, nil
}

// LoadAll retrieves every record. IDs whose value has vanished are skipped;
// any other failure is returned.
func (s *Store) LoadAll(ctx context.Context) ([]*domain.SiteLinkRecord, error) {
	ids, err := s.client.SMembers(ctx, KeyAllRecords).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get record IDs: %w", err)
	}

	if len(ids) == 0 {
		return []*domain.SiteLinkRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = RecordKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}

	records := make([]*domain.SiteLinkRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var record domain.SiteLinkRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record %s: %w", ids[i], err)
		}
		records = append(records, &record)
	}

	return records, nil
}

// DeleteRecord removes a record
func (s *Store) DeleteRecord(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, RecordKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	if err := s.client.SRem(ctx, KeyAllRecords, id).Err(); err != nil {
		return fmt.Errorf("failed to remove record from set: %w", err)
	}

	return nil
}
