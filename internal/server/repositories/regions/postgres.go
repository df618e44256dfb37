// Package regions provides the PostgreSQL repository of regions and of the
// per-user access grants on them.
package regions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/models"
)

const columns = `r.short_name, r.display_name, r.lat1, r.lng1, r.lat2, r.lng2, r.center_lat, r.center_lng`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListForUser returns the live regions granted to userID ordered by short name.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]models.Region, error) {
	query := `
		SELECT ` + columns + `
		FROM regions r
		JOIN user_regions ur ON ur.region_id = r.id
		WHERE ur.user_id = $1 AND r.deleted_at IS NULL
		ORDER BY r.short_name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select regions: %w", err)
	}
	defer rows.Close()

	result := []models.Region{}
	for rows.Next() {
		var reg models.Region
		if err := rows.Scan(scanTargets(&reg)...); err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByShortName(ctx context.Context, short string) (*models.Region, error) {
	query := `SELECT ` + columns + ` FROM regions r WHERE r.short_name = $1 AND r.deleted_at IS NULL`

	var reg models.Region
	err := r.db.QueryRowContext(ctx, query, short).Scan(scanTargets(&reg)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select region: %w", err)
	}
	return &reg, nil
}

// IDByShortName resolves the row id of a live region.
func (r *PostgresRepository) IDByShortName(ctx context.Context, short string) (int64, error) {
	query := `SELECT id FROM regions WHERE short_name = $1 AND deleted_at IS NULL`

	var id int64
	err := r.db.QueryRowContext(ctx, query, short).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to select region id: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, reg *models.Region) (int64, error) {
	query := `
		INSERT INTO regions (short_name, display_name, lat1, lng1, lat2, lng2, center_lat, center_lng)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		reg.ShortName, reg.DisplayName,
		reg.Corner1.Lat, reg.Corner1.Lng, reg.Corner2.Lat, reg.Corner2.Lng,
		reg.Center.Lat, reg.Center.Lng,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert region: %w", err)
	}
	return id, nil
}

// Grant gives userID access to the region. Granting twice is a no-op.
func (r *PostgresRepository) Grant(ctx context.Context, userID string, regionID int64) error {
	query := `INSERT INTO user_regions (user_id, region_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, regionID); err != nil {
		return fmt.Errorf("failed to grant region: %w", err)
	}
	return nil
}

func (r *PostgresRepository) HasAccess(ctx context.Context, userID, short string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_regions ur
			JOIN regions r ON r.id = ur.region_id
			WHERE ur.user_id = $1 AND r.short_name = $2 AND r.deleted_at IS NULL
		)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, short).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check region access: %w", err)
	}
	return ok, nil
}

func scanTargets(reg *models.Region) []any {
	return []any{
		&reg.ShortName, &reg.DisplayName,
		&reg.Corner1.Lat, &reg.Corner1.Lng, &reg.Corner2.Lat, &reg.Corner2.Lng,
		&reg.Center.Lat, &reg.Center.Lng,
	}
}
