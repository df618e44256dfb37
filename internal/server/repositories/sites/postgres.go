// Package sites provides the PostgreSQL repository of nest-box sites.
package sites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/models"
)

const columns = `id, region, name, category, comment, image, lat, lng, created_at, changed_at, deleted_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the site with the given id, tombstoned or not.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Site, error) {
	query := `SELECT ` + columns + ` FROM sites WHERE id = $1`

	s, err := scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select site: %w", err)
	}
	return s, nil
}

// Insert stores a new site under s.Region and returns the assigned id.
func (r *PostgresRepository) Insert(ctx context.Context, userID string, s *models.Site) (int64, error) {
	query := `
		INSERT INTO sites (region, user_id, name, category, comment, image, lat, lng, created_at, changed_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		s.Region, userID, s.Name, s.Category, s.Comment, s.Image, s.Lat, s.Lng,
		dbx.NullTime(s.CreatedAt), dbx.NullTime(s.ChangedAt), dbx.NullTime(s.DeletedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert site: %w", err)
	}
	return id, nil
}

// Update overwrites the mutable fields and stamps. The region never changes.
func (r *PostgresRepository) Update(ctx context.Context, s *models.Site) error {
	id, ok := models.ServerID(s.ID)
	if !ok {
		return fmt.Errorf("%w: %q", common.ErrInvalidID, s.ID)
	}

	query := `
		UPDATE sites SET name = $2, category = $3, comment = $4, image = $5, lat = $6, lng = $7,
			created_at = $8, changed_at = $9, deleted_at = $10
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id,
		s.Name, s.Category, s.Comment, s.Image, s.Lat, s.Lng,
		dbx.NullTime(s.CreatedAt), dbx.NullTime(s.ChangedAt), dbx.NullTime(s.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update site: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// MarkDeleted tombstones a site that is not tombstoned yet.
func (r *PostgresRepository) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE sites SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, id, at.UTC()); err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	return nil
}

// ListLive returns the non-tombstoned sites of a region ordered by id.
func (r *PostgresRepository) ListLive(ctx context.Context, region string) ([]models.Site, error) {
	query := `SELECT ` + columns + ` FROM sites WHERE region = $1 AND deleted_at IS NULL ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, region)
	if err != nil {
		return nil, fmt.Errorf("failed to select sites: %w", err)
	}
	defer rows.Close()

	result := []models.Site{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Candidates lists every live site with its coordinates and last change.
func (r *PostgresRepository) Candidates(ctx context.Context) ([]Candidate, error) {
	query := `
		SELECT id, COALESCE(changed_at, created_at, $1), lat, lng
		FROM sites WHERE deleted_at IS NULL`

	rows, err := r.db.QueryContext(ctx, query, models.EpochSentinel)
	if err != nil {
		return nil, fmt.Errorf("failed to select duplicate candidates: %w", err)
	}
	defer rows.Close()

	var result []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.LastChanged, &c.Lat, &c.Lng); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.Site, error) {
	var (
		s                         models.Site
		id                        int64
		created, changed, deleted sql.NullTime
	)
	if err := row.Scan(&id, &s.Region, &s.Name, &s.Category, &s.Comment, &s.Image, &s.Lat, &s.Lng,
		&created, &changed, &deleted); err != nil {
		return nil, err
	}
	s.ID = models.FormatServerID(id)
	s.CreatedAt = dbx.TimePtr(created)
	s.ChangedAt = dbx.TimePtr(changed)
	s.DeletedAt = dbx.TimePtr(deleted)
	return &s, nil
}
