// Package inspections provides the PostgreSQL repository of inspections.
package inspections

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/models"
)

const columns = `id, site_id, region, date, species, comment, image, cleaned, created_at, changed_at, deleted_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListBySite returns every inspection of a site including tombstones.
func (r *PostgresRepository) ListBySite(ctx context.Context, siteID int64) ([]models.Inspection, error) {
	query := `SELECT ` + columns + ` FROM inspections WHERE site_id = $1 ORDER BY id`
	return r.list(ctx, query, siteID)
}

// ListLive returns the non-tombstoned inspections of a region.
func (r *PostgresRepository) ListLive(ctx context.Context, region string) ([]models.Inspection, error) {
	query := `SELECT ` + columns + ` FROM inspections WHERE region = $1 AND deleted_at IS NULL ORDER BY site_id, id`
	return r.list(ctx, query, region)
}

// Insert stores a new inspection; SiteID must be a server id.
func (r *PostgresRepository) Insert(ctx context.Context, userID string, in *models.Inspection) (int64, error) {
	siteID, ok := models.ServerID(in.SiteID)
	if !ok {
		return 0, fmt.Errorf("%w: site %q", common.ErrInvalidID, in.SiteID)
	}

	query := `
		INSERT INTO inspections (site_id, region, user_id, date, species, comment, image, cleaned, created_at, changed_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		siteID, in.Region, userID, in.Date.UTC(), in.Species, in.Comment, in.Image, in.Cleaned,
		dbx.NullTime(in.CreatedAt), dbx.NullTime(in.ChangedAt), dbx.NullTime(in.DeletedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert inspection: %w", err)
	}
	return id, nil
}

// Update overwrites the mutable fields and stamps of an inspection.
func (r *PostgresRepository) Update(ctx context.Context, in *models.Inspection) error {
	id, ok := models.ServerID(in.ID)
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrInvalidID, in.ID)
	}

	query := `
		UPDATE inspections SET date = $2, species = $3, comment = $4, image = $5, cleaned = $6,
			created_at = $7, changed_at = $8, deleted_at = $9
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id,
		in.Date.UTC(), in.Species, in.Comment, in.Image, in.Cleaned,
		dbx.NullTime(in.CreatedAt), dbx.NullTime(in.ChangedAt), dbx.NullTime(in.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update inspection: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// MarkDeletedBySite tombstones the live inspections of a site and returns
// how many were touched.
func (r *PostgresRepository) MarkDeletedBySite(ctx context.Context, siteID int64, at time.Time) (int64, error) {
	query := `UPDATE inspections SET deleted_at = $2 WHERE site_id = $1 AND deleted_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, siteID, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete inspections: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) list(ctx context.Context, query string, arg any) ([]models.Inspection, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to select inspections: %w", err)
	}
	defer rows.Close()

	result := []models.Inspection{}
	for rows.Next() {
		var (
			in                        models.Inspection
			id, siteID                int64
			created, changed, deleted sql.NullTime
		)
		if err := rows.Scan(&id, &siteID, &in.Region, &in.Date, &in.Species, &in.Comment, &in.Image, &in.Cleaned,
			&created, &changed, &deleted); err != nil {
			return nil, err
		}
		in.ID = models.FormatServerID(id)
		in.SiteID = models.FormatServerID(siteID)
		in.Date = in.Date.UTC()
		in.CreatedAt = dbx.TimePtr(created)
		in.ChangedAt = dbx.TimePtr(changed)
		in.DeletedAt = dbx.TimePtr(deleted)
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
