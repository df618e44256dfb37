package syncer

import (
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/models"
)

// BlobIndex reports whether a blob is present on the device.
type BlobIndex interface {
	Exists(path string) bool
}

// Compare decides what has to move for one local site. remote is nil when
// the server has no live record with the site's id.
func Compare(local models.Site, remote *models.ManifestEntry, blobs BlobIndex) models.ComparisonResult {
	var up, down pathSet
	res := models.ComparisonResult{SiteID: local.ID}

	if remote == nil {
		res.Direction = models.DirectionPush
		for _, p := range local.Images() {
			up.add(p)
		}
		res.BlobsToUpload = up.list()
		return res
	}

	compareImage(local.Image, remote.Image, blobs, &up, &down)
	res.Direction = byTime(local.LastChanged(), remote.LastChanged)

	remoteChildren := make(map[string]models.ChildManifestEntry, len(remote.Children))
	for _, c := range remote.Children {
		remoteChildren[c.ID] = c
	}

	localIDs := make(map[string]struct{}, len(local.Visits))
	for _, v := range local.Visits {
		localIDs[v.ID] = struct{}{}

		rc, ok := remoteChildren[v.ID]
		if !ok {
			res.Direction |= models.DirectionPush
			if v.Image != "" {
				if blobs.Exists(v.Image) {
					up.add(v.Image)
				} else {
					down.add(v.Image)
				}
			}
			continue
		}

		compareImage(v.Image, rc.Image, blobs, &up, &down)
		res.Direction |= byTime(v.LastChanged(), rc.LastChanged)
	}

	for _, rc := range remote.Children {
		if _, ok := localIDs[rc.ID]; ok {
			continue
		}
		res.Direction |= models.DirectionPull
		if rc.Image != "" && !blobs.Exists(rc.Image) {
			down.add(rc.Image)
		}
	}

	res.BlobsToUpload = up.list()
	res.BlobsToDownload = down.list()
	return res
}

// compareImage queues a differing local image for upload and a remote
// image missing on the device for download.
func compareImage(local, remote string, blobs BlobIndex, up, down *pathSet) {
	if local != "" && local != remote {
		up.add(local)
	}
	if remote != "" && !blobs.Exists(remote) {
		down.add(remote)
	}
}

func byTime(local, remote time.Time) models.Direction {
	switch {
	case local.Before(remote):
		return models.DirectionPull
	case local.After(remote):
		return models.DirectionPush
	default:
		return models.DirectionNone
	}
}

// pathSet keeps insertion order and drops repeats.
type pathSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *pathSet) add(p string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[p]; ok {
		return
	}
	s.seen[p] = struct{}{}
	s.items = append(s.items, p)
}

func (s *pathSet) list() []string {
	return s.items
}
