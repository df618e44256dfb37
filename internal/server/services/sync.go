// Package services implements the server side of site synchronisation:
// manifests and listings per region, the site upsert, the duplicate sweep,
// region grants and photo storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	sc "github.com/dmitrijs2005/nestwatch/internal/server/config"
	"github.com/dmitrijs2005/nestwatch/internal/server/metrics"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/repomanager"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type SyncService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	metrics     *metrics.Metrics
	// manifests is nil when caching is disabled.
	manifests *expirable.LRU[string, []models.ManifestEntry]
	now       func() time.Time
}

func NewSyncService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config,
	logger logging.Logger, m *metrics.Metrics) *SyncService {
	s := &SyncService{
		db:          db,
		repomanager: repomanager,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
	if config.ManifestCacheSize > 0 {
		s.manifests = expirable.NewLRU[string, []models.ManifestEntry](config.ManifestCacheSize, nil, config.ManifestCacheTTL)
	}
	return s
}

// Manifest summarises the live sites of a region with their live
// inspections. Inspections whose site is not live are skipped.
func (s *SyncService) Manifest(ctx context.Context, region string) ([]models.ManifestEntry, error) {
	if s.manifests != nil {
		if m, ok := s.manifests.Get(region); ok {
			s.metrics.ManifestCacheHits.Inc()
			return m, nil
		}
		s.metrics.ManifestCacheMisses.Inc()
	}

	sites, err := s.repomanager.Sites(s.db).ListLive(ctx, region)
	if err != nil {
		return nil, err
	}
	inspections, err := s.repomanager.Inspections(s.db).ListLive(ctx, region)
	if err != nil {
		return nil, err
	}

	result := make([]models.ManifestEntry, len(sites))
	index := make(map[string]int, len(sites))
	for i, site := range sites {
		result[i] = models.ManifestEntry{
			ID:          site.ID,
			LastChanged: site.LastChanged(),
			Image:       site.Image,
			Children:    []models.ChildManifestEntry{},
		}
		index[site.ID] = i
	}

	for _, in := range inspections {
		i, ok := index[in.SiteID]
		if !ok {
			s.logger.Warn(ctx, "inspection without live site skipped", "id", in.ID, "site_id", in.SiteID, "region", region)
			continue
		}
		result[i].Children = append(result[i].Children, models.ChildManifestEntry{
			ID:          in.ID,
			LastChanged: in.LastChanged(),
			Image:       in.Image,
		})
	}

	if s.manifests != nil {
		s.manifests.Add(region, result)
	}
	return result, nil
}

// Sites lists the live sites of a region.
func (s *SyncService) Sites(ctx context.Context, region string) ([]models.Site, error) {
	return s.repomanager.Sites(s.db).ListLive(ctx, region)
}

// Inspections lists the live inspections of a region.
func (s *SyncService) Inspections(ctx context.Context, region string) ([]models.Inspection, error) {
	return s.repomanager.Inspections(s.db).ListLive(ctx, region)
}

// Site returns a live site with its live inspections.
func (s *SyncService) Site(ctx context.Context, id string) (*models.Site, error) {
	n, ok := models.ServerID(id)
	if !ok {
		return nil, common.ErrorNotFound
	}

	site, err := s.repomanager.Sites(s.db).Get(ctx, n)
	if err != nil {
		return nil, err
	}
	if site.Deleted() {
		return nil, common.ErrorNotFound
	}

	visits, err := s.repomanager.Inspections(s.db).ListBySite(ctx, n)
	if err != nil {
		return nil, err
	}
	site.Visits = visits
	site.Visits = site.LiveVisits()

	return site, nil
}

// Upsert merges one pushed site with its inspections in a single
// transaction and reports how the device must remap or drop its copy.
func (s *SyncService) Upsert(ctx context.Context, userID, region string, site models.Site) (*models.UpsertResult, error) {
	if site.Region == "" {
		site.Region = region
	}
	if site.Region != region {
		return nil, fmt.Errorf("%w: site belongs to %q", common.ErrForbiddenRegion, site.Region)
	}

	var res *models.UpsertResult
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		res, err = s.upsert(ctx, tx, userID, site)
		return err
	})
	if err != nil {
		s.metrics.Upserts.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if s.manifests != nil {
		s.manifests.Remove(region)
	}
	s.metrics.Upserts.WithLabelValues(outcome(res)).Inc()
	return res, nil
}

func (s *SyncService) upsert(ctx context.Context, tx dbx.DBTX, userID string, site models.Site) (*models.UpsertResult, error) {
	sitesRepo := s.repomanager.Sites(tx)

	var existing *models.Site
	if id, ok := models.ServerID(site.ID); ok {
		got, err := sitesRepo.Get(ctx, id)
		switch {
		case errors.Is(err, common.ErrorNotFound):
		case err != nil:
			return nil, err
		default:
			existing = got
		}
	}

	if existing == nil {
		if site.Deleted() {
			return &models.UpsertResult{Delete: &models.DeleteResult{OldID: site.ID}}, nil
		}
		return s.insert(ctx, tx, userID, site)
	}

	if existing.Region != site.Region {
		return nil, fmt.Errorf("%w: site %s belongs to %q", common.ErrForbiddenRegion, existing.ID, existing.Region)
	}
	id, _ := models.ServerID(existing.ID)

	if site.Deleted() {
		if !existing.Deleted() {
			if err := sitesRepo.MarkDeleted(ctx, id, *site.DeletedAt); err != nil {
				return nil, err
			}
		}
		if _, err := s.repomanager.Inspections(tx).MarkDeletedBySite(ctx, id, *site.DeletedAt); err != nil {
			return nil, err
		}
		return &models.UpsertResult{Delete: &models.DeleteResult{OldID: site.ID}}, nil
	}

	newer := site.LastChanged().After(existing.LastChanged())
	if existing.Deleted() && !newer {
		return &models.UpsertResult{Delete: &models.DeleteResult{OldID: site.ID}}, nil
	}
	if newer {
		if err := sitesRepo.Update(ctx, &site); err != nil {
			return nil, err
		}
	}

	children, err := s.reconcile(ctx, tx, userID, id, site)
	if err != nil {
		return nil, err
	}
	return &models.UpsertResult{UpdateChildIDs: &models.UpdateChildIDs{Children: children}}, nil
}

func (s *SyncService) insert(ctx context.Context, tx dbx.DBTX, userID string, site models.Site) (*models.UpsertResult, error) {
	id, err := s.repomanager.Sites(tx).Insert(ctx, userID, &site)
	if err != nil {
		return nil, err
	}
	newID := models.FormatServerID(id)

	inspectionsRepo := s.repomanager.Inspections(tx)
	children := []models.IDMapping{}
	for _, v := range site.LiveVisits() {
		v.SiteID = newID
		v.Region = site.Region
		childID, err := inspectionsRepo.Insert(ctx, userID, &v)
		if err != nil {
			return nil, err
		}
		children = append(children, models.IDMapping{NewID: models.FormatServerID(childID), OldID: v.ID})
	}

	s.logger.Info(ctx, "site inserted", "id", newID, "old_id", site.ID, "region", site.Region, "inspections", len(children))
	return &models.UpsertResult{UpdateIDs: &models.UpdateIDs{NewID: newID, OldID: site.ID, Children: children}}, nil
}

// reconcile applies the pushed inspections of a known site: known ones are
// overwritten when the pushed copy is newer, unknown live ones are inserted
// and reported.
func (s *SyncService) reconcile(ctx context.Context, tx dbx.DBTX, userID string, siteID int64, site models.Site) ([]models.IDMapping, error) {
	repo := s.repomanager.Inspections(tx)

	stored, err := repo.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]models.Inspection, len(stored))
	for _, in := range stored {
		known[in.ID] = in
	}

	children := []models.IDMapping{}
	for _, v := range site.Visits {
		v.SiteID = models.FormatServerID(siteID)
		v.Region = site.Region

		if k, ok := known[v.ID]; ok {
			if v.LastChanged().After(k.LastChanged()) {
				if err := repo.Update(ctx, &v); err != nil {
					return nil, err
				}
			}
			continue
		}
		if v.Deleted() {
			continue
		}

		childID, err := repo.Insert(ctx, userID, &v)
		if err != nil {
			return nil, err
		}
		children = append(children, models.IDMapping{NewID: models.FormatServerID(childID), OldID: v.ID})
	}
	return children, nil
}

func outcome(res *models.UpsertResult) string {
	switch {
	case res.Delete != nil:
		return metrics.OutcomeDelete
	case res.UpdateIDs != nil:
		return metrics.OutcomeUpdateIDs
	default:
		return metrics.OutcomeUpdateChilds
	}
}
