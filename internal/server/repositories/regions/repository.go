package regions

import (
	"context"

	"github.com/dmitrijs2005/nestwatch/internal/models"
)

type Repository interface {
	ListForUser(ctx context.Context, userID string) ([]models.Region, error)
	GetByShortName(ctx context.Context, short string) (*models.Region, error)
	Insert(ctx context.Context, r *models.Region) (int64, error)
	Grant(ctx context.Context, userID string, regionID int64) error
	HasAccess(ctx context.Context, userID, short string) (bool, error)
	IDByShortName(ctx context.Context, short string) (int64, error)
}
