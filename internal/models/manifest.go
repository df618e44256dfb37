package models

import "time"

// ChildManifestEntry summarises one inspection.
type ChildManifestEntry struct {
	ID          string    `json:"id"`
	LastChanged time.Time `json:"lastChanged"`
	Image       string    `json:"image,omitempty"`
}

// ManifestEntry summarises one live site and its live inspections.
type ManifestEntry struct {
	ID          string               `json:"id"`
	LastChanged time.Time            `json:"lastChanged"`
	Image       string               `json:"image,omitempty"`
	Children    []ChildManifestEntry `json:"ctrls"`
}

// Direction is a bitmask of record transfer directions.
type Direction uint8

const (
	DirectionNone Direction = 0
	DirectionPush Direction = 1
	DirectionPull Direction = 2
	DirectionBoth           = DirectionPush | DirectionPull
)

func (d Direction) Has(o Direction) bool {
	return d&o != 0
}

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionPush:
		return "push"
	case DirectionPull:
		return "pull"
	case DirectionBoth:
		return "both"
	default:
		return "invalid"
	}
}

// ComparisonResult is the verdict for one local site.
type ComparisonResult struct {
	SiteID          string
	Direction       Direction
	BlobsToUpload   []string
	BlobsToDownload []string
}

// Empty reports whether nothing has to move for this site.
func (r ComparisonResult) Empty() bool {
	return r.Direction == DirectionNone && len(r.BlobsToUpload) == 0 && len(r.BlobsToDownload) == 0
}
