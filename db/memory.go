package db

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is a process-local ItemStore for dry runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Item)}
}

// PutItem upserts a copy of item under key.
func (s *MemoryStore) PutItem(ctx context.Context, key string, item Item) error {
	if key == "" {
		return fmt.Errorf("%w: partition key cannot be empty", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = maps.Clone(item)
	return nil
}

// ScanItems returns copies of every item in key order.
func (s *MemoryStore) ScanItems(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Item, 0, len(s.items))
	for _, key := range slices.Sorted(maps.Keys(s.items)) {
		item := maps.Clone(s.items[key])
		if _, ok := item[AttrPartitionKey]; !ok {
			item[AttrPartitionKey] = key
		}
		items = append(items, item)
	}
	return items, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
