// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/server/migrations"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/inspections"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/regions"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/sites"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories bound to
// either the pool or a running transaction.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Sites(db dbx.DBTX) sites.Repository {
	return sites.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Inspections(db dbx.DBTX) inspections.Repository {
	return inspections.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Regions(db dbx.DBTX) regions.Repository {
	return regions.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
