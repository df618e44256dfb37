package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/tidwall/gjson"
)

// collectionPrefix namespaces the flat key space.
var collectionPrefix = map[string]string{
	CollectionSites:       "_n_",
	CollectionInspections: "_k_",
	CollectionSettings:    "_s_",
}

// PrefixBackend stores every collection in the kv table. It only supports
// exact-key access and prefix scans.
type PrefixBackend struct {
	db *sql.DB
	prefixOps
}

func NewPrefixBackend(db *sql.DB) *PrefixBackend {
	return &PrefixBackend{db: db, prefixOps: prefixOps{db: db}}
}

// Update is not atomic on this backend: writes land as fn issues them.
func (b *PrefixBackend) Update(ctx context.Context, fn func(ctx context.Context, ops Ops) error) error {
	return fn(ctx, b.prefixOps)
}

func (b *PrefixBackend) Close() error {
	return b.db.Close()
}

type prefixOps struct {
	db dbx.DBTX
}

func prefixFor(collection string) (string, error) {
	p, ok := collectionPrefix[collection]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return p, nil
}

// prefixEnd is the smallest string greater than every string with prefix p.
func prefixEnd(p string) string {
	b := []byte(p)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return ""
}

func (o prefixOps) Get(ctx context.Context, collection, key string) ([]byte, error) {
	p, err := prefixFor(collection)
	if err != nil {
		return nil, err
	}

	var value string
	err = o.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, p+key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", p+key, err)
	}
	return []byte(value), nil
}

func (o prefixOps) Put(ctx context.Context, collection, key string, value []byte) error {
	p, err := prefixFor(collection)
	if err != nil {
		return err
	}

	_, err = o.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, p+key, string(value))
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrWrite, p+key, err)
	}
	return nil
}

func (o prefixOps) Delete(ctx context.Context, collection, key string) error {
	p, err := prefixFor(collection)
	if err != nil {
		return err
	}

	if _, err := o.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, p+key); err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrWrite, p+key, err)
	}
	return nil
}

func (o prefixOps) ListKeys(ctx context.Context, collection string) ([]string, error) {
	keys := make([]string, 0)
	err := o.scan(ctx, collection, func(key string, _ string) {
		keys = append(keys, key)
	})
	return keys, err
}

// ListKeysByIndex scans the whole collection and compares the named JSON
// field of every value.
func (o prefixOps) ListKeysByIndex(ctx context.Context, collection, index, value string) ([]string, error) {
	if _, ok := indexExpr[index]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, index)
	}

	keys := make([]string, 0)
	err := o.scan(ctx, collection, func(key string, raw string) {
		if gjson.Get(raw, index).String() == value {
			keys = append(keys, key)
		}
	})
	return keys, err
}

func (o prefixOps) scan(ctx context.Context, collection string, visit func(key, value string)) error {
	p, err := prefixFor(collection)
	if err != nil {
		return err
	}

	rows, err := o.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key`, p, prefixEnd(p))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", p, err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("failed to scan kv row: %w", err)
		}
		visit(strings.TrimPrefix(k, p), v)
	}
	return rows.Err()
}
