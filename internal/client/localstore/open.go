package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/nestwatch/internal/client/migrations"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Backend kinds accepted by Open.
const (
	KindIndexed = "indexed"
	KindPrefix  = "prefix"
)

// RunMigrations applies the embedded schema with goose.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens the SQLite file at dsn, migrates it and wraps it in the
// requested backend.
func Open(ctx context.Context, kind, dsn string, logger logging.Logger) (*Store, error) {
	var newBackend func(*sql.DB) Backend
	switch kind {
	case KindIndexed, "":
		newBackend = func(db *sql.DB) Backend { return NewIndexedBackend(db) }
	case KindPrefix:
		newBackend = func(db *sql.DB) Backend { return NewPrefixBackend(db) }
	default:
		return nil, fmt.Errorf("unknown local store backend %q", kind)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; also keeps transactions and reads on the same connection
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local store migrations: %w", err)
	}

	return NewStore(newBackend(db), logger), nil
}
