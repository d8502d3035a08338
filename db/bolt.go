package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"reposync/logger"
)

// BoltStore keeps items in a single bbolt bucket, JSON encoded.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
}

// NewBoltStore opens (or creates) the database file at path and ensures the
// bucket exists.
func NewBoltStore(path, bucket string) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: bolt path cannot be empty", ErrInvalidInput)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}

	logger.Info("Opened bolt store", zap.String("path", path), zap.String("bucket", bucket))
	return &BoltStore{db: db, bucket: []byte(bucket)}, nil
}

// PutItem upserts item under key.
func (s *BoltStore) PutItem(ctx context.Context, key string, item Item) error {
	if key == "" {
		return fmt.Errorf("%w: partition key cannot be empty", ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), data)
	})
}

// ScanItems returns every item in key order.
func (s *BoltStore) ScanItems(ctx context.Context) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			item, err := decodeItem(v)
			if err != nil {
				return fmt.Errorf("item %s: %w", k, err)
			}
			if _, ok := item[AttrPartitionKey]; !ok {
				item[AttrPartitionKey] = string(k)
			}
			items = append(items, item)
			return nil
		})
	})
	return items, err
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
