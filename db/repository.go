package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

type itemRow struct {
	PartitionKey string `db:"partition_key"`
	Item         []byte `db:"item"`
}

// PutItem upserts item under key.
func (db *PostgresStore) PutItem(ctx context.Context, key string, item Item) error {
	if key == "" {
		return fmt.Errorf("%w: partition key cannot be empty", ErrInvalidInput)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %s: %w", key, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (partition_key, item, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (partition_key) DO UPDATE SET
			item = EXCLUDED.item,
			updated_at = EXCLUDED.updated_at
	`, db.table)

	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, key, data); err != nil {
		return fmt.Errorf("failed to store item %s: %w", key, err)
	}
	return nil
}

// ScanItems returns every item ordered by partition key.
func (db *PostgresStore) ScanItems(ctx context.Context) ([]Item, error) {
	query := fmt.Sprintf(`SELECT partition_key, item FROM %s ORDER BY partition_key`, db.table)

	var rows []itemRow
	if err := db.conn.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		item, err := decodeItem(row.Item)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", row.PartitionKey, err)
		}
		if _, ok := item[AttrPartitionKey]; !ok {
			item[AttrPartitionKey] = row.PartitionKey
		}
		items = append(items, item)
	}
	return items, nil
}

// decodeItem keeps numbers as json.Number so counts survive exactly.
func decodeItem(data []byte) (Item, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var item Item
	if err := dec.Decode(&item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedItem, err)
	}
	if item == nil {
		item = Item{}
	}
	return item, nil
}
