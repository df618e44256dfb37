package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
)

// indexExpr must match the expressions of the migration indexes exactly,
// otherwise SQLite will not use them.
var indexExpr = map[string]string{
	IndexRegion: "json_extract(value, '$.region')",
	IndexSite:   "json_extract(value, '$.siteId')",
}

// IndexedBackend stores all collections in the records table.
type IndexedBackend struct {
	db *sql.DB
	indexedOps
}

func NewIndexedBackend(db *sql.DB) *IndexedBackend {
	return &IndexedBackend{db: db, indexedOps: indexedOps{db: db}}
}

func (b *IndexedBackend) Update(ctx context.Context, fn func(ctx context.Context, ops Ops) error) error {
	return dbx.WithTx(ctx, b.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, indexedOps{db: tx})
	})
}

func (b *IndexedBackend) Close() error {
	return b.db.Close()
}

type indexedOps struct {
	db dbx.DBTX
}

func (o indexedOps) Get(ctx context.Context, collection, key string) ([]byte, error) {
	var value string
	err := o.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE collection = ? AND key = ?`, collection, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s[%s]: %w", collection, key, err)
	}
	return []byte(value), nil
}

func (o indexedOps) Put(ctx context.Context, collection, key string, value []byte) error {
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO records (collection, key, value) VALUES (?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET value = excluded.value
	`, collection, key, string(value))
	if err != nil {
		return fmt.Errorf("%w: put %s[%s]: %v", ErrWrite, collection, key, err)
	}
	return nil
}

func (o indexedOps) Delete(ctx context.Context, collection, key string) error {
	_, err := o.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("%w: delete %s[%s]: %v", ErrWrite, collection, key, err)
	}
	return nil
}

func (o indexedOps) ListKeys(ctx context.Context, collection string) ([]string, error) {
	return o.keys(ctx, `SELECT key FROM records WHERE collection = ? ORDER BY key`, collection)
}

func (o indexedOps) ListKeysByIndex(ctx context.Context, collection, index, value string) ([]string, error) {
	expr, ok := indexExpr[index]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, index)
	}
	q := `SELECT key FROM records WHERE collection = ? AND ` + expr + ` = ? ORDER BY key`
	return o.keys(ctx, q, collection, value)
}

func (o indexedOps) keys(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}
