package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/dmitrijs2005/nestwatch/internal/server/config"
	"github.com/dmitrijs2005/nestwatch/internal/server/metrics"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/inspections"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/regions"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/sites"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

type fakeSitesRepo struct {
	sites.Repository
	rows       map[int64]models.Site
	nextID     int64
	candidates []sites.Candidate
	err        error
	updated    int
}

func newFakeSites(rows ...models.Site) *fakeSitesRepo {
	f := &fakeSitesRepo{rows: map[int64]models.Site{}, nextID: 100}
	for _, s := range rows {
		id, _ := models.ServerID(s.ID)
		f.rows[id] = s
	}
	return f
}

func (f *fakeSitesRepo) Get(ctx context.Context, id int64) (*models.Site, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.rows[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (f *fakeSitesRepo) Insert(ctx context.Context, userID string, s *models.Site) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	c := s.Bare()
	c.ID = models.FormatServerID(f.nextID)
	f.rows[f.nextID] = c
	return f.nextID, nil
}

func (f *fakeSitesRepo) Update(ctx context.Context, s *models.Site) error {
	id, _ := models.ServerID(s.ID)
	old, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	c := s.Bare()
	c.Region = old.Region
	f.rows[id] = c
	f.updated++
	return nil
}

func (f *fakeSitesRepo) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	s, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.DeletedAt = &at
	f.rows[id] = s
	return nil
}

func (f *fakeSitesRepo) ListLive(ctx context.Context, region string) ([]models.Site, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Site{}
	for _, id := range sortedKeys(f.rows) {
		if s := f.rows[id]; s.Region == region && !s.Deleted() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSitesRepo) Candidates(ctx context.Context) ([]sites.Candidate, error) {
	return f.candidates, f.err
}

type fakeInspectionsRepo struct {
	inspections.Repository
	rows   map[int64]models.Inspection
	nextID int64
}

func newFakeInspections(rows ...models.Inspection) *fakeInspectionsRepo {
	f := &fakeInspectionsRepo{rows: map[int64]models.Inspection{}, nextID: 500}
	for _, in := range rows {
		id, _ := models.ServerID(in.ID)
		f.rows[id] = in
	}
	return f
}

func (f *fakeInspectionsRepo) ListBySite(ctx context.Context, siteID int64) ([]models.Inspection, error) {
	out := []models.Inspection{}
	for _, id := range sortedKeys(f.rows) {
		if in := f.rows[id]; in.SiteID == models.FormatServerID(siteID) {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeInspectionsRepo) ListLive(ctx context.Context, region string) ([]models.Inspection, error) {
	out := []models.Inspection{}
	for _, id := range sortedKeys(f.rows) {
		if in := f.rows[id]; in.Region == region && !in.Deleted() {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeInspectionsRepo) Insert(ctx context.Context, userID string, in *models.Inspection) (int64, error) {
	f.nextID++
	c := *in
	c.ID = models.FormatServerID(f.nextID)
	f.rows[f.nextID] = c
	return f.nextID, nil
}

func (f *fakeInspectionsRepo) Update(ctx context.Context, in *models.Inspection) error {
	id, _ := models.ServerID(in.ID)
	if _, ok := f.rows[id]; !ok {
		return common.ErrorNotFound
	}
	f.rows[id] = *in
	return nil
}

func (f *fakeInspectionsRepo) MarkDeletedBySite(ctx context.Context, siteID int64, at time.Time) (int64, error) {
	var n int64
	for id, in := range f.rows {
		if in.SiteID == models.FormatServerID(siteID) && !in.Deleted() {
			in.DeletedAt = &at
			f.rows[id] = in
			n++
		}
	}
	return n, nil
}

type fakeRegionsRepo struct {
	regions.Repository
	ids     map[string]int64
	byID    map[int64]models.Region
	grants  map[string]map[int64]bool
	nextID  int64
	checked []string
}

func newFakeRegions() *fakeRegionsRepo {
	return &fakeRegionsRepo{
		ids:    map[string]int64{},
		byID:   map[int64]models.Region{},
		grants: map[string]map[int64]bool{},
	}
}

func (f *fakeRegionsRepo) IDByShortName(ctx context.Context, short string) (int64, error) {
	id, ok := f.ids[short]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return id, nil
}

func (f *fakeRegionsRepo) Insert(ctx context.Context, r *models.Region) (int64, error) {
	f.nextID++
	f.ids[r.ShortName] = f.nextID
	f.byID[f.nextID] = *r
	return f.nextID, nil
}

func (f *fakeRegionsRepo) Grant(ctx context.Context, userID string, regionID int64) error {
	if f.grants[userID] == nil {
		f.grants[userID] = map[int64]bool{}
	}
	f.grants[userID][regionID] = true
	return nil
}

func (f *fakeRegionsRepo) ListForUser(ctx context.Context, userID string) ([]models.Region, error) {
	out := []models.Region{}
	for _, id := range sortedKeys(f.byID) {
		if f.grants[userID][id] {
			out = append(out, f.byID[id])
		}
	}
	return out, nil
}

func (f *fakeRegionsRepo) HasAccess(ctx context.Context, userID, short string) (bool, error) {
	f.checked = append(f.checked, short)
	id, ok := f.ids[short]
	return ok && f.grants[userID][id], nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	s *fakeSitesRepo
	i *fakeInspectionsRepo
	r *fakeRegionsRepo
}

func (m *fakeRepoManager) Sites(db dbx.DBTX) sites.Repository             { return m.s }
func (m *fakeRepoManager) Inspections(db dbx.DBTX) inspections.Repository { return m.i }
func (m *fakeRepoManager) Regions(db dbx.DBTX) regions.Repository         { return m.r }

// -------- helpers --------

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func at(minute int) *time.Time {
	t := time.Date(2024, 4, 1, 10, minute, 0, 0, time.UTC)
	return &t
}

func newSyncService(t *testing.T, db *sql.DB, m *fakeRepoManager, cacheSize int) (*SyncService, *metrics.Metrics) {
	t.Helper()
	cfg := &config.Config{ManifestCacheSize: cacheSize, ManifestCacheTTL: time.Minute}
	mt := metrics.Nop()
	svc := NewSyncService(db, m, cfg, logging.Nop(), mt)
	svc.now = func() time.Time { return *at(59) }
	return svc, mt
}
