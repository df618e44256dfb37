package client

import (
	"context"

	"github.com/dmitrijs2005/nestwatch/internal/models"
)

// Client is the remote service as seen by the sync engine.
type Client interface {
	Ping(ctx context.Context) error
	Manifest(ctx context.Context, region string) ([]models.ManifestEntry, error)
	Sites(ctx context.Context, region string) ([]models.Site, error)
	Inspections(ctx context.Context, region string) ([]models.Inspection, error)
	Site(ctx context.Context, id string) (*models.Site, error)
	UpsertSite(ctx context.Context, region string, site models.Site) (*models.UpsertResult, error)
	DownloadBlob(ctx context.Context, path string) ([]byte, error)
	UploadBlob(ctx context.Context, path string, data []byte) (int, error)
	RemoveDuplicates(ctx context.Context) (int, error)
	SyncRegions(ctx context.Context, regions []models.Region) ([]models.Region, error)
}
