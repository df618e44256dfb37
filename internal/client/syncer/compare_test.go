package syncer

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/nestwatch/internal/models"
	"github.com/stretchr/testify/assert"
)

type blobSet map[string]bool

func (b blobSet) Exists(p string) bool { return b[p] }

func tp(day int) *time.Time {
	t := time.Date(2024, 4, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func localSite(changed int, image string, visits ...models.Inspection) models.Site {
	return models.Site{
		ID: "1", Region: "muc", Image: image,
		Stamps: models.Stamps{CreatedAt: tp(1), ChangedAt: tp(changed)},
		Visits: visits,
	}
}

func insp(id string, changed int, image string) models.Inspection {
	return models.Inspection{ID: id, SiteID: "1", Region: "muc", Image: image, Stamps: models.Stamps{CreatedAt: tp(1), ChangedAt: tp(changed)}}
}

func entry(changed int, image string, children ...models.ChildManifestEntry) *models.ManifestEntry {
	return &models.ManifestEntry{ID: "1", LastChanged: *tp(changed), Image: image, Children: children}
}

func child(id string, changed int, image string) models.ChildManifestEntry {
	return models.ChildManifestEntry{ID: id, LastChanged: *tp(changed), Image: image}
}

func TestCompare_NoRemoteCounterpart_PushesAllImages(t *testing.T) {
	s := localSite(3, "img/s.jpg", insp("2", 3, "img/a.jpg"), insp("3", 3, ""), insp("4", 3, "img/b.jpg"))

	res := Compare(s, nil, blobSet{})

	assert.Equal(t, models.DirectionPush, res.Direction)
	assert.Equal(t, []string{"img/s.jpg", "img/a.jpg", "img/b.jpg"}, res.BlobsToUpload)
	assert.Empty(t, res.BlobsToDownload)
}

func TestCompare_TimestampDominance(t *testing.T) {
	visits := []models.Inspection{insp("2", 3, "")}
	children := []models.ChildManifestEntry{child("2", 3, "")}

	tests := []struct {
		name   string
		local  int
		remote int
		want   models.Direction
	}{
		{"local newer", 5, 3, models.DirectionPush},
		{"remote newer", 3, 5, models.DirectionPull},
		{"equal", 4, 4, models.DirectionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compare(localSite(tt.local, "", visits...), entry(tt.remote, "", children...), blobSet{})
			assert.Equal(t, tt.want, res.Direction)
			assert.Empty(t, res.BlobsToUpload)
			assert.Empty(t, res.BlobsToDownload)
		})
	}
}

func TestCompare_TombstoneIsNewest(t *testing.T) {
	s := localSite(3, "")
	s.DeletedAt = tp(9)

	res := Compare(s, entry(5, ""), blobSet{})
	assert.Equal(t, models.DirectionPush, res.Direction)
}

func TestCompare_LocalOnlyChildForcesPush(t *testing.T) {
	s := localSite(4, "", insp("2", 4, ""), insp("c9", 6, "img/new.jpg"))

	res := Compare(s, entry(4, "", child("2", 4, "")), blobSet{"img/new.jpg": true})

	assert.Equal(t, models.DirectionPush, res.Direction)
	assert.Equal(t, []string{"img/new.jpg"}, res.BlobsToUpload)
}

func TestCompare_LocalOnlyChildWithMissingBlobQueuesDownload(t *testing.T) {
	s := localSite(4, "", insp("c9", 6, "img/lost.jpg"))

	res := Compare(s, entry(4, ""), blobSet{})

	assert.Equal(t, models.DirectionPush, res.Direction)
	assert.Empty(t, res.BlobsToUpload)
	assert.Equal(t, []string{"img/lost.jpg"}, res.BlobsToDownload)
}

func TestCompare_RemoteOnlyChildForcesPull(t *testing.T) {
	s := localSite(4, "")

	res := Compare(s, entry(4, "", child("8", 2, "img/r.jpg")), blobSet{})

	assert.Equal(t, models.DirectionPull, res.Direction)
	assert.Equal(t, []string{"img/r.jpg"}, res.BlobsToDownload)
}

func TestCompare_ChildDirectionsCombine(t *testing.T) {
	s := localSite(4, "", insp("2", 7, ""), insp("3", 1, ""))

	res := Compare(s, entry(4, "", child("2", 4, ""), child("3", 4, "")), blobSet{})

	assert.Equal(t, models.DirectionBoth, res.Direction)
}

func TestCompare_ImageMovesWithoutRecordChange(t *testing.T) {
	s := localSite(4, "img/local.jpg")

	res := Compare(s, entry(4, "img/remote.jpg"), blobSet{"img/local.jpg": true})

	assert.Equal(t, models.DirectionNone, res.Direction)
	assert.Equal(t, []string{"img/local.jpg"}, res.BlobsToUpload)
	assert.Equal(t, []string{"img/remote.jpg"}, res.BlobsToDownload)
	assert.False(t, res.Empty())
}

func TestCompare_SameImagePresentLocallyMovesNothing(t *testing.T) {
	s := localSite(4, "img/a.jpg", insp("2", 4, "img/b.jpg"))

	res := Compare(s, entry(4, "img/a.jpg", child("2", 4, "img/b.jpg")), blobSet{"img/a.jpg": true, "img/b.jpg": true})

	assert.True(t, res.Empty())
}

func TestCompare_DeduplicatesPaths(t *testing.T) {
	s := localSite(4, "img/a.jpg", insp("c1", 4, "img/a.jpg"))

	res := Compare(s, nil, blobSet{})
	assert.Equal(t, []string{"img/a.jpg"}, res.BlobsToUpload)
}
