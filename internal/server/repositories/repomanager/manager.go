package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/inspections"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/regions"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/sites"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Sites(db dbx.DBTX) sites.Repository
	Inspections(db dbx.DBTX) inspections.Repository
	Regions(db dbx.DBTX) regions.Repository
}
