package sites

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/models"
)

// Candidate is the slice of a live site the duplicate sweep looks at.
type Candidate struct {
	ID          int64
	LastChanged time.Time
	Lat         float64
	Lng         float64
}

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Site, error)
	Insert(ctx context.Context, userID string, s *models.Site) (int64, error)
	Update(ctx context.Context, s *models.Site) error
	MarkDeleted(ctx context.Context, id int64, at time.Time) error
	ListLive(ctx context.Context, region string) ([]models.Site, error)
	Candidates(ctx context.Context) ([]Candidate, error)
}
