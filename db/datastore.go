package db

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
)

// Attributes excluded from Datastore indexes; README content in particular
// routinely exceeds the indexed string limit.
var unindexedAttrs = map[string]bool{
	AttrDescription: true,
	AttrReadme:      true,
	AttrURL:         true,
}

// DatastoreStore keeps one entity per partition key under a single kind.
type DatastoreStore struct {
	client *datastore.Client
	kind   string
}

// NewDatastoreStore creates a Datastore client for project.
func NewDatastoreStore(ctx context.Context, project, kind string, opts ...option.ClientOption) (*DatastoreStore, error) {
	client, err := datastore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}
	return NewDatastoreStoreFromClient(client, kind), nil
}

// NewDatastoreStoreFromClient wraps an existing client.
func NewDatastoreStoreFromClient(client *datastore.Client, kind string) *DatastoreStore {
	return &DatastoreStore{client: client, kind: kind}
}

func (s *DatastoreStore) key(partitionKey string) *datastore.Key {
	return datastore.NameKey(s.kind, partitionKey, nil)
}

// PutItem upserts item under key.
func (s *DatastoreStore) PutItem(ctx context.Context, key string, item Item) error {
	if key == "" {
		return fmt.Errorf("%w: partition key cannot be empty", ErrInvalidInput)
	}

	props := make(datastore.PropertyList, 0, len(item))
	for name, value := range item {
		props = append(props, datastore.Property{
			Name:    name,
			Value:   value,
			NoIndex: unindexedAttrs[name],
		})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })

	if _, err := s.client.Put(ctx, s.key(key), &props); err != nil {
		return fmt.Errorf("failed to store item %s: %w", key, err)
	}
	return nil
}

// ScanItems returns every entity of the kind in key order.
func (s *DatastoreStore) ScanItems(ctx context.Context) ([]Item, error) {
	var entities []datastore.PropertyList
	keys, err := s.client.GetAll(ctx, datastore.NewQuery(s.kind).Order("__key__"), &entities)
	if err != nil {
		return nil, fmt.Errorf("failed to scan kind %s: %w", s.kind, err)
	}

	items := make([]Item, 0, len(entities))
	for i, props := range entities {
		item := make(Item, len(props)+1)
		for _, p := range props {
			item[p.Name] = p.Value
		}
		if _, ok := item[AttrPartitionKey]; !ok {
			item[AttrPartitionKey] = keys[i].Name
		}
		items = append(items, item)
	}
	return items, nil
}

// Close closes the underlying datastore client.
func (s *DatastoreStore) Close() error {
	return s.client.Close()
}

// Compile-time checks
var (
	_ ItemStore = (*DatastoreStore)(nil)
	_ ItemStore = (*BoltStore)(nil)
	_ ItemStore = (*PostgresStore)(nil)
	_ ItemStore = (*MemoryStore)(nil)
)
