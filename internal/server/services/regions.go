package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/repomanager"
)

type RegionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRegionService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *RegionService {
	return &RegionService{db: db, repomanager: repomanager, logger: logger}
}

// Sync creates the regions the caller sent that the server does not know,
// grants them to the caller and returns every region the caller can see.
// Regions that already exist are never granted this way.
func (s *RegionService) Sync(ctx context.Context, userID string, regions []models.Region) ([]models.Region, error) {
	for _, r := range regions {
		if err := models.Validate(r); err != nil {
			return nil, fmt.Errorf("invalid region %q: %w", r.ShortName, err)
		}
	}

	var visible []models.Region
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Regions(tx)

		for _, r := range regions {
			_, err := repo.IDByShortName(ctx, r.ShortName)
			if err == nil {
				continue
			}
			if !errors.Is(err, common.ErrorNotFound) {
				return err
			}

			id, err := repo.Insert(ctx, &r)
			if err != nil {
				return err
			}
			if err := repo.Grant(ctx, userID, id); err != nil {
				return err
			}
			s.logger.Info(ctx, "region created", "region", r.ShortName, "user_id", userID)
		}

		var err error
		visible, err = repo.ListForUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return visible, nil
}

// CheckAccess fails with common.ErrForbiddenRegion unless userID may use
// region. A region that does not exist is forbidden as well.
func (s *RegionService) CheckAccess(ctx context.Context, userID, region string) error {
	ok, err := s.repomanager.Regions(s.db).HasAccess(ctx, userID, region)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", common.ErrForbiddenRegion, region)
	}
	return nil
}
