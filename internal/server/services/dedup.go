package services

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/nestwatch/internal/dbx"
	"github.com/dmitrijs2005/nestwatch/internal/server/repositories/sites"
)

// RemoveDuplicates tombstones live sites that share exact coordinates with
// another live site, keeping the most recently changed one of each group.
// Inspections of removed sites are tombstoned with them.
func (s *SyncService) RemoveDuplicates(ctx context.Context) (int, error) {
	var removed int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sitesRepo := s.repomanager.Sites(tx)
		inspectionsRepo := s.repomanager.Inspections(tx)

		candidates, err := sitesRepo.Candidates(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		for _, loser := range duplicates(candidates) {
			if err := sitesRepo.MarkDeleted(ctx, loser, now); err != nil {
				return err
			}
			if _, err := inspectionsRepo.MarkDeletedBySite(ctx, loser, now); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		if s.manifests != nil {
			s.manifests.Purge()
		}
		s.metrics.DuplicatesRemoved.Add(float64(removed))
		s.logger.Info(ctx, "duplicate sites removed", "count", removed)
	}
	return removed, nil
}

// duplicates returns the ids to remove. Within a group of equal coordinates
// the latest LastChanged survives; on a tie the higher id does.
func duplicates(c []sites.Candidate) []int64 {
	sort.Slice(c, func(i, j int) bool {
		a, b := c[i], c[j]
		switch {
		case a.Lat != b.Lat:
			return a.Lat < b.Lat
		case a.Lng != b.Lng:
			return a.Lng < b.Lng
		case !a.LastChanged.Equal(b.LastChanged):
			return a.LastChanged.Before(b.LastChanged)
		default:
			return a.ID < b.ID
		}
	})

	var out []int64
	for i := 1; i < len(c); i++ {
		prev := c[i-1]
		if prev.Lat == c[i].Lat && prev.Lng == c[i].Lng {
			out = append(out, prev.ID)
		}
	}
	return out
}
