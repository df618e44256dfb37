package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/logging"
	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/tidwall/gjson"
)

const (
	settingRegions        = "regions"
	settingSelectedRegion = "selectedRegion"
	settingVocabulary     = "vocabulary"
	settingPendingUploads = "pendingUploads"
)

// Store maps sites, inspections and settings onto a Backend.
type Store struct {
	b      Backend
	logger logging.Logger
}

func NewStore(b Backend, logger logging.Logger) *Store {
	return &Store{b: b, logger: logger}
}

func (s *Store) Close() error {
	return s.b.Close()
}

// LoadRegion returns every site of the region, tombstones included, with
// their inspections attached. Inspections pointing at a site that is not
// part of the region are returned separately as orphans and stay stored.
func (s *Store) LoadRegion(ctx context.Context, region string) ([]models.Site, []models.Inspection, error) {
	if region == "" {
		return nil, nil, common.ErrMissingRegion
	}

	sites, err := loadByIndex[models.Site](ctx, s.b, CollectionSites, IndexRegion, region)
	if err != nil {
		return nil, nil, err
	}
	inspections, err := loadByIndex[models.Inspection](ctx, s.b, CollectionInspections, IndexRegion, region)
	if err != nil {
		return nil, nil, err
	}

	pos := make(map[string]int, len(sites))
	for i := range sites {
		pos[sites[i].ID] = i
	}

	var orphans []models.Inspection
	for _, in := range inspections {
		i, ok := pos[in.SiteID]
		if !ok {
			orphans = append(orphans, in)
			continue
		}
		sites[i].Visits = append(sites[i].Visits, in)
	}

	for i := range sites {
		sortVisits(sites[i].Visits)
	}
	return sites, orphans, nil
}

// ListSites returns the live sites of a region with their live visits.
func (s *Store) ListSites(ctx context.Context, region string) ([]models.Site, error) {
	all, _, err := s.LoadRegion(ctx, region)
	if err != nil {
		return nil, err
	}

	out := make([]models.Site, 0, len(all))
	for _, site := range all {
		if site.Deleted() {
			continue
		}
		site.Visits = site.LiveVisits()
		out = append(out, site)
	}
	return out, nil
}

// GetSite returns one site with all of its stored inspections.
func (s *Store) GetSite(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	if err := getJSON(ctx, s.b, CollectionSites, id, &site); err != nil {
		return nil, err
	}

	visits, err := loadByIndex[models.Inspection](ctx, s.b, CollectionInspections, IndexSite, id)
	if err != nil {
		return nil, err
	}
	sortVisits(visits)
	site.Visits = visits
	return &site, nil
}

// GetInspection returns one stored inspection.
func (s *Store) GetInspection(ctx context.Context, id string) (*models.Inspection, error) {
	var in models.Inspection
	if err := getJSON(ctx, s.b, CollectionInspections, id, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// PutSite stores the site without its visits.
func (s *Store) PutSite(ctx context.Context, site models.Site) error {
	return putJSON(ctx, s.b, CollectionSites, site.ID, site.Bare())
}

func (s *Store) PutInspection(ctx context.Context, in models.Inspection) error {
	return putJSON(ctx, s.b, CollectionInspections, in.ID, in)
}

// DeleteSite physically removes a site and its inspections.
func (s *Store) DeleteSite(ctx context.Context, id string) error {
	return s.b.Update(ctx, func(ctx context.Context, ops Ops) error {
		return deleteSite(ctx, ops, id)
	})
}

func (s *Store) DeleteInspection(ctx context.Context, id string) error {
	return s.b.Update(ctx, func(ctx context.Context, ops Ops) error {
		return ops.Delete(ctx, CollectionInspections, id)
	})
}

// ReplaceRegion swaps the stored content of one region for a fresh
// snapshot. On a transactional backend readers see either the old or the
// new content. A record that cannot be written is logged and skipped.
func (s *Store) ReplaceRegion(ctx context.Context, region string, sites []models.Site, inspections []models.Inspection) (nSites, nInspections int, err error) {
	if region == "" {
		return 0, 0, common.ErrMissingRegion
	}

	err = s.b.Update(ctx, func(ctx context.Context, ops Ops) error {
		nSites, nInspections = 0, 0

		for _, c := range []string{CollectionInspections, CollectionSites} {
			keys, err := ops.ListKeysByIndex(ctx, c, IndexRegion, region)
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := ops.Delete(ctx, c, k); err != nil {
					return err
				}
			}
		}

		for _, site := range sites {
			if err := putJSON(ctx, ops, CollectionSites, site.ID, site.Bare()); err != nil {
				s.logger.Warn(ctx, "site not stored", "region", region, "id", site.ID, "error", err)
				continue
			}
			nSites++
		}
		for _, in := range inspections {
			if err := putJSON(ctx, ops, CollectionInspections, in.ID, in); err != nil {
				s.logger.Warn(ctx, "inspection not stored", "region", region, "id", in.ID, "error", err)
				continue
			}
			nInspections++
		}
		return nil
	})
	return nSites, nInspections, err
}

// PurgeOtherRegions deletes sites and inspections of every region not in
// keep. Settings are untouched.
func (s *Store) PurgeOtherRegions(ctx context.Context, keep []string) (int, error) {
	removed := 0
	err := s.b.Update(ctx, func(ctx context.Context, ops Ops) error {
		for _, c := range []string{CollectionInspections, CollectionSites} {
			keys, err := ops.ListKeys(ctx, c)
			if err != nil {
				return err
			}
			for _, k := range keys {
				raw, err := ops.Get(ctx, c, k)
				if err != nil {
					return err
				}
				if slices.Contains(keep, gjson.GetBytes(raw, IndexRegion).String()) {
					continue
				}
				if err := ops.Delete(ctx, c, k); err != nil {
					return err
				}
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// ApplyRemap brings the local copy of a pushed site in line with the server
// reply: the site is dropped on a delete reply, otherwise site and child ids
// are rewritten to the server-assigned ones.
func (s *Store) ApplyRemap(ctx context.Context, site models.Site, res models.UpsertResult) error {
	return s.b.Update(ctx, func(ctx context.Context, ops Ops) error {
		if res.Delete != nil {
			return deleteSite(ctx, ops, site.ID)
		}

		siteID := site.ID
		if res.UpdateIDs != nil && res.UpdateIDs.NewID != "" && res.UpdateIDs.NewID != site.ID {
			siteID = res.UpdateIDs.NewID
			if err := ops.Delete(ctx, CollectionSites, site.ID); err != nil {
				return err
			}
			site.ID = siteID
			if err := putJSON(ctx, ops, CollectionSites, siteID, site.Bare()); err != nil {
				return err
			}
		}

		childIDs := make(map[string]string)
		for _, m := range res.ChildMappings() {
			childIDs[m.OldID] = m.NewID
		}

		for _, v := range site.Visits {
			newID, remapped := childIDs[v.ID]
			if !remapped && v.SiteID == siteID {
				continue
			}
			if remapped {
				if err := ops.Delete(ctx, CollectionInspections, v.ID); err != nil {
					return err
				}
				v.ID = newID
			}
			v.SiteID = siteID
			if err := putJSON(ctx, ops, CollectionInspections, v.ID, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Regions returns the region list stored by the last region sync.
func (s *Store) Regions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	err := getJSON(ctx, s.b, CollectionSettings, settingRegions, &regions)
	if errors.Is(err, common.ErrorNotFound) {
		return []models.Region{}, nil
	}
	return regions, err
}

func (s *Store) SetRegions(ctx context.Context, regions []models.Region) error {
	return putJSON(ctx, s.b, CollectionSettings, settingRegions, regions)
}

// SelectedRegion returns the region the user works in, or "" if unset.
func (s *Store) SelectedRegion(ctx context.Context) (string, error) {
	var region string
	err := getJSON(ctx, s.b, CollectionSettings, settingSelectedRegion, &region)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	}
	return region, err
}

func (s *Store) SetSelectedRegion(ctx context.Context, region string) error {
	return putJSON(ctx, s.b, CollectionSettings, settingSelectedRegion, region)
}

// Vocabulary returns the stored categories and species, seeding the
// defaults on first use.
func (s *Store) Vocabulary(ctx context.Context) (models.Vocabulary, error) {
	var v models.Vocabulary
	err := getJSON(ctx, s.b, CollectionSettings, settingVocabulary, &v)
	if errors.Is(err, common.ErrorNotFound) {
		v = models.DefaultVocabulary()
		return v, s.SetVocabulary(ctx, v)
	}
	return v, err
}

func (s *Store) SetVocabulary(ctx context.Context, v models.Vocabulary) error {
	return putJSON(ctx, s.b, CollectionSettings, settingVocabulary, v)
}

func deleteSite(ctx context.Context, ops Ops, id string) error {
	keys, err := ops.ListKeysByIndex(ctx, CollectionInspections, IndexSite, id)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := ops.Delete(ctx, CollectionInspections, k); err != nil {
			return err
		}
	}
	return ops.Delete(ctx, CollectionSites, id)
}

func getJSON(ctx context.Context, ops Ops, collection, key string, v any) error {
	raw, err := ops.Get(ctx, collection, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s[%s]: %w", collection, key, err)
	}
	return nil
}

func putJSON(ctx context.Context, ops Ops, collection, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s[%s]: %v", ErrWrite, collection, key, err)
	}
	return ops.Put(ctx, collection, key, raw)
}

func loadByIndex[T any](ctx context.Context, ops Ops, collection, index, value string) ([]T, error) {
	keys, err := ops.ListKeysByIndex(ctx, collection, index, value)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(keys))
	for _, k := range keys {
		var v T
		if err := getJSON(ctx, ops, collection, k, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func sortVisits(v []models.Inspection) {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].Date.Equal(v[j].Date) {
			return v[i].ID < v[j].ID
		}
		return v[i].Date.Before(v[j].Date)
	})
}

// PendingUploads returns, per region, the blob paths whose upload failed
// in an earlier pass.
func (s *Store) PendingUploads(ctx context.Context) (map[string][]string, error) {
	pending := map[string][]string{}
	err := getJSON(ctx, s.b, CollectionSettings, settingPendingUploads, &pending)
	if errors.Is(err, common.ErrorNotFound) {
		return map[string][]string{}, nil
	}
	return pending, err
}

func (s *Store) SetPendingUploads(ctx context.Context, pending map[string][]string) error {
	return putJSON(ctx, s.b, CollectionSettings, settingPendingUploads, pending)
}
