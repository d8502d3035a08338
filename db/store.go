package db

import (
	"context"
	"fmt"

	"reposync/logger"
	"reposync/models"

	"go.uber.org/zap"
)

// ItemStore is the put/scan contract of a key-value backend. PutItem replaces
// any item stored under key. ScanItems returns every item ordered by key.
type ItemStore interface {
	PutItem(ctx context.Context, key string, item Item) error
	ScanItems(ctx context.Context) ([]Item, error)
	Close() error
}

// RepositoryStore persists repository records on top of an ItemStore.
type RepositoryStore struct {
	items ItemStore
}

// NewRepositoryStore wraps items.
func NewRepositoryStore(items ItemStore) *RepositoryStore {
	return &RepositoryStore{items: items}
}

// Put upserts record under its partition key.
func (s *RepositoryStore) Put(ctx context.Context, record models.RepositoryRecord) error {
	if record.Name == "" {
		return fmt.Errorf("%w: repository name cannot be empty", ErrInvalidInput)
	}

	key := PartitionKey(record.Name)
	if err := s.items.PutItem(ctx, key, ToItem(record)); err != nil {
		return fmt.Errorf("failed to store repository %s: %w", record.Name, err)
	}

	logger.Debug("Repository stored", zap.String("key", key), zap.Int("commit_count", record.CommitCount))
	return nil
}

// ScanAll returns every stored record, highest commit count first. Items
// that cannot be mapped to a record are skipped.
func (s *RepositoryStore) ScanAll(ctx context.Context) ([]models.RepositoryRecord, error) {
	items, err := s.items.ScanItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan repositories: %w", err)
	}

	records := make([]models.RepositoryRecord, 0, len(items))
	for _, item := range items {
		record, err := FromItem(item)
		if err != nil {
			logger.Warn("Skipping unreadable item", zap.Error(err), zap.Any("key", item[AttrPartitionKey]))
			continue
		}
		records = append(records, record)
	}

	models.SortByCommitCount(records)
	return records, nil
}

// Close releases the underlying backend.
func (s *RepositoryStore) Close() error {
	return s.items.Close()
}
