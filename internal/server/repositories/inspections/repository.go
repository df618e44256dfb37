package inspections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/models"
)

type Repository interface {
	ListBySite(ctx context.Context, siteID int64) ([]models.Inspection, error)
	ListLive(ctx context.Context, region string) ([]models.Inspection, error)
	Insert(ctx context.Context, userID string, in *models.Inspection) (int64, error)
	Update(ctx context.Context, in *models.Inspection) error
	MarkDeletedBySite(ctx context.Context, siteID int64, at time.Time) (int64, error)
}
